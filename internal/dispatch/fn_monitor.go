package dispatch

import (
	"sync"
	"sync/atomic"
	"time"
)

// globeKeycode is the HID keycode some keyboards report for the Globe/Fn
// key in addition to (or instead of) a FlagsChanged event. The darwin tap
// reports it as globeKeyEvent and FnMonitor.handle ignores it. The tap is
// listen-only, so neither this event nor Fn-flagged FlagsChanged events
// are removed from the OS event stream.
const globeKeycode = 179

// fnDisambiguation is the hold window used to distinguish a bare Fn
// press-and-release (push-to-talk) from Fn+Space (hands-free toggle),
// spec §4.D step 3.
const fnDisambiguation = 150 * time.Millisecond

// FnActions are the effects the Fn monitor drives — the Dispatcher's
// start/stop of the "transcribe" (PTT) and "transcribe_handsfree"
// (toggle) bindings, plus discarding an already-started PTT recording
// (spec §4.D step 4).
type FnActions interface {
	StartPTT()
	StopPTT()
	CancelPTT()
	ToggleHandsFree()
}

// fnSignal is a raw, already keycode-filtered notification off the
// platform tap, before any disambiguation logic runs.
type fnSignal int

const (
	fnDown fnSignal = iota
	fnUp
	spaceDownWhileFn
	globeKeyEvent
)

// fnTap is the platform event source consumed by FnMonitor.
type fnTap interface {
	Run(onEvent func(fnSignal)) error
	Close()
}

// timer abstracts time.Timer so tests can substitute a deterministic
// disambiguation delay.
type timer interface {
	Stop() bool
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// FnMonitor implements the Fn-key monitor (spec §4.D) as a single owned
// value — not process-wide statics, per the Design Notes — covering the
// 150ms disambiguation delay and the hands-free/PTT interplay.
type FnMonitor struct {
	actions   FnActions
	tap       fnTap
	afterFunc func(d time.Duration, f func()) timer

	mu           sync.Mutex
	fnHeld       bool
	pttStarted   bool
	handsFree    bool
	pressCounter uint64
}

// NewFnMonitor constructs a monitor over actions using the platform Fn
// tap returned by newPlatformFnTap.
func NewFnMonitor(actions FnActions) *FnMonitor {
	return newFnMonitor(actions, newPlatformFnTap())
}

func newFnMonitor(actions FnActions, tap fnTap) *FnMonitor {
	return &FnMonitor{
		actions: actions,
		tap:     tap,
		afterFunc: func(d time.Duration, f func()) timer {
			return realTimer{t: time.AfterFunc(d, f)}
		},
	}
}

// Start runs the tap until Stop is called. It blocks; run it in its own
// goroutine.
func (m *FnMonitor) Start() error {
	return m.tap.Run(m.handle)
}

// Stop tears down the underlying tap.
func (m *FnMonitor) Stop() {
	m.tap.Close()
}

func (m *FnMonitor) handle(sig fnSignal) {
	switch sig {
	case globeKeyEvent:
		return // dropped, spec §4.D step 2
	case fnDown:
		m.onFnDown()
	case fnUp:
		m.onFnUp()
	case spaceDownWhileFn:
		m.onSpaceWhileFn()
	}
}

// onFnDown starts the disambiguation timer. If nothing supersedes it
// within fnDisambiguation, the press is treated as plain Fn push-to-talk.
func (m *FnMonitor) onFnDown() {
	m.mu.Lock()
	if m.fnHeld {
		m.mu.Unlock()
		return
	}
	m.fnHeld = true
	m.handsFree = false
	myGen := atomic.AddUint64(&m.pressCounter, 1)
	m.mu.Unlock()

	m.afterFunc(fnDisambiguation, func() {
		m.mu.Lock()
		if !m.fnHeld || m.pressCounter != myGen || m.handsFree {
			m.mu.Unlock()
			return
		}
		m.pttStarted = true
		m.mu.Unlock()
		m.actions.StartPTT()
	})
}

// onSpaceWhileFn fires Fn+Space: discards an already-started PTT recording
// (step 4 — the audio captured before Space was pressed is never a valid
// transcript, so it must be cancelled, not stopped-and-transcribed) and
// hands control to the toggle hands-free binding.
func (m *FnMonitor) onSpaceWhileFn() {
	m.mu.Lock()
	if !m.fnHeld {
		m.mu.Unlock()
		return
	}
	wasPTT := m.pttStarted
	m.pttStarted = false
	m.handsFree = true
	atomic.AddUint64(&m.pressCounter, 1) // invalidate any pending disambiguation timer
	m.mu.Unlock()

	if wasPTT {
		m.actions.CancelPTT()
	}
	m.actions.ToggleHandsFree()
}

// onFnUp stops PTT unless hands-free already owns recording state, in
// which case release is a no-op (step 5).
func (m *FnMonitor) onFnUp() {
	m.mu.Lock()
	m.fnHeld = false
	handsFree := m.handsFree
	wasPTT := m.pttStarted
	m.pttStarted = false
	atomic.AddUint64(&m.pressCounter, 1)
	m.mu.Unlock()

	if handsFree {
		return
	}
	if wasPTT {
		m.actions.StopPTT()
	}
}
