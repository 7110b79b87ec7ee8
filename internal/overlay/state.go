// Package overlay implements the Overlay State machine (component E, spec
// §4.E): the single authoritative source of truth for what the
// always-on-top recording indicator shows, guarded by one process-wide
// lock so Recording/Transcribing/Processing/Cancelling transitions can
// never race each other.
package overlay

import (
	"sync"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

// State is the OverlayState enum from spec §3.
type State int

const (
	Hidden State = iota
	Recording
	Transcribing
	Processing
	Cancelling
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Processing:
		return "processing"
	case Cancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// cancellingFloor is the minimum residency time for Cancelling (spec §4.E).
const cancellingFloor = 600 * time.Millisecond

// readyPollInterval/readyPollTimeout implement show_recording_overlay's
// wait for the renderer's one-shot overlay-ready signal (spec §4.E).
const (
	readyPollInterval = 10 * time.Millisecond
	readyPollTimeout  = 500 * time.Millisecond
)

// MonitorPosition is the position the overlay window should be drawn at,
// resolved relative to the monitor containing the cursor.
type MonitorPosition struct {
	X, Y int
}

// PositionSource resolves the current monitor position for the overlay.
// Implementations query the OS cursor location; nil is a valid Overlay
// dependency (position tracking is then a no-op).
type PositionSource interface {
	CursorMonitorPosition() MonitorPosition
}

// Overlay owns the single authoritative OverlayState.
type Overlay struct {
	mu sync.Mutex

	state     State
	sessionID string
	enteredAt time.Time
	gen       int

	bus      *events.Bus
	position PositionSource

	ready     bool
	readyOnce sync.Once
	readyCh   chan struct{}
}

// New constructs an Overlay in the Hidden state.
func New(bus *events.Bus, position PositionSource) *Overlay {
	return &Overlay{
		bus:      bus,
		position: position,
		readyCh:  make(chan struct{}),
	}
}

// MarkReady records the renderer's one-shot overlay-ready signal.
func (o *Overlay) MarkReady() {
	o.readyOnce.Do(func() {
		o.mu.Lock()
		o.ready = true
		o.mu.Unlock()
		close(o.readyCh)
	})
}

// WaitReady blocks until overlay-ready has fired or readyPollTimeout
// elapses, whichever comes first, then returns unconditionally (spec §4.E:
// "proceeds regardless").
func (o *Overlay) WaitReady() {
	select {
	case <-o.readyCh:
	case <-time.After(readyPollTimeout):
	}
}

// State returns the current overlay state and the session id it is
// associated with.
func (o *Overlay) State() (State, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.sessionID
}

// inCancellingFloorLocked reports whether the Cancelling sticky window is
// still active. Must be called with o.mu held.
func (o *Overlay) inCancellingFloorLocked() bool {
	return o.state == Cancelling && time.Since(o.enteredAt) < cancellingFloor
}

// show is the shared entry transition for Recording/Transcribing/Processing.
// It rejects the transition while a Cancelling floor is active, per spec
// §4.E ("a newly arriving start press does not suppress the cancel
// indication").
func (o *Overlay) show(next State, sessionID string) bool {
	o.mu.Lock()
	if o.inCancellingFloorLocked() {
		o.mu.Unlock()
		return false
	}
	o.state = next
	o.sessionID = sessionID
	o.enteredAt = time.Now()
	o.gen++
	o.mu.Unlock()

	o.updatePosition()
	o.publish(events.ShowOverlay, next.String())
	return true
}

// ShowRecording enters Recording for sessionID.
func (o *Overlay) ShowRecording(sessionID string) bool { return o.show(Recording, sessionID) }

// ShowTranscribing enters Transcribing for sessionID.
func (o *Overlay) ShowTranscribing(sessionID string) bool { return o.show(Transcribing, sessionID) }

// ShowProcessing enters Processing for sessionID.
func (o *Overlay) ShowProcessing(sessionID string) bool { return o.show(Processing, sessionID) }

// HideIfRecording hides the overlay only if it is currently Recording for
// exactly sessionID, protecting against a stale hide-if-recording race
// from an older session (spec §4.E).
func (o *Overlay) HideIfRecording(sessionID string) bool {
	o.mu.Lock()
	if o.state != Recording || o.sessionID != sessionID {
		o.mu.Unlock()
		return false
	}
	o.mu.Unlock()
	return o.Hide()
}

// CancelForSession transitions to Cancelling if the overlay is currently
// tracking sessionID (in any non-Hidden state), refusing a stop signal
// meant for an older session (spec §4.E). After cancellingFloor it
// auto-transitions to Hidden unless superseded by a new Show* call.
func (o *Overlay) CancelForSession(sessionID string) bool {
	o.mu.Lock()
	if o.state == Hidden || o.sessionID != sessionID {
		o.mu.Unlock()
		return false
	}
	o.state = Cancelling
	o.enteredAt = time.Now()
	o.gen++
	myGen := o.gen
	o.mu.Unlock()

	o.publish(events.ShowOverlay, Cancelling.String())

	go func() {
		time.Sleep(cancellingFloor)
		o.mu.Lock()
		if o.state == Cancelling && o.gen == myGen {
			o.state = Hidden
			o.sessionID = ""
			o.mu.Unlock()
			o.publish(events.HideOverlay, nil)
			return
		}
		o.mu.Unlock()
	}()
	return true
}

// Hide transitions directly to Hidden, rejected while the Cancelling floor
// is active (the auto-transition goroutine will hide it once the floor
// expires).
func (o *Overlay) Hide() bool {
	o.mu.Lock()
	if o.inCancellingFloorLocked() {
		o.mu.Unlock()
		return false
	}
	if o.state == Hidden {
		o.mu.Unlock()
		return false
	}
	o.state = Hidden
	o.sessionID = ""
	o.gen++
	o.mu.Unlock()

	o.publish(events.HideOverlay, nil)
	return true
}

func (o *Overlay) updatePosition() {
	if o.position == nil || o.bus == nil {
		return
	}
	_ = o.position.CursorMonitorPosition()
}

func (o *Overlay) publish(kind events.Kind, payload any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(kind, payload)
}

// PublishMicLevel forwards a visualizer frame, matching spec §4.E's "only
// emitted when the renderer exists and is visible."
func (o *Overlay) PublishMicLevel(buckets []float32) {
	o.mu.Lock()
	visible := o.state != Hidden
	o.mu.Unlock()
	if !visible {
		return
	}
	o.publish(events.MicLevel, buckets)
}

// PublishRecordingTime forwards a time-limit tick, same visibility gate as
// PublishMicLevel.
func (o *Overlay) PublishRecordingTime(elapsed, max uint32) {
	o.mu.Lock()
	visible := o.state != Hidden
	o.mu.Unlock()
	if !visible {
		return
	}
	o.publish(events.RecordingTime, events.RecordingTimePayload{ElapsedSeconds: elapsed, MaxSeconds: max})
}
