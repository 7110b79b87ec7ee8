// Package recording implements the Recording Manager (component C, spec
// §4.C): the high-level recording lifecycle state machine, the RAM-tiered
// time limit ticker, and the mute-while-recording policy. It owns a single
// Recorder and a single Device Arbitrator resolution, generalizing the
// teacher's on-demand-only, always-reopen push-to-talk loop
// (internal/recorder/recorder.go StartRecording/StopRecording) into the
// full Idle/Preparing/Recording state machine.
package recording

import (
	"context"
	"sync"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/audio"
	"github.com/aidynamicsolutions/codictate/internal/device"
	"github.com/aidynamicsolutions/codictate/internal/events"
	"github.com/aidynamicsolutions/codictate/internal/settings"
)

// padTargetSamples is 1.25s at the recorder's 16kHz output rate (§4.C
// stop_recording: "pad the buffer with zeros to 1.25 s").
const padTargetSamples = 16000 * 5 / 4

// shortRecordingCeiling is the sample count below which a non-empty
// recording gets zero-padded (§4.C: "between 0 and 16000").
const shortRecordingCeiling = 16000

// Recorder is the subset of *audio.Recorder the manager drives. Defined as
// an interface so tests can supply a fake instead of opening real hardware.
type Recorder interface {
	Open(ctx context.Context, device *audio.DeviceHandle) error
	Start() error
	Stop() []float32
	Close() error
	IsOpen() bool
	ResetCache()
}

// DeviceResolver is the subset of *device.Arbitrator the manager needs.
type DeviceResolver interface {
	Resolve(p device.Policy) (*audio.DeviceHandle, device.Transport, error)
}

// Notifier surfaces the at-most-once low-time warning (§4.C).
type Notifier interface {
	WarnLowTime(remainingSeconds int)
}

type noopNotifier struct{}

func (noopNotifier) WarnLowTime(int) {}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithRecorderFactory supplies how to construct a fresh Recorder for
// WarmupRecorder and initial construction. Required.
func WithRecorderFactory(factory func() Recorder) Option {
	return func(m *Manager) { m.newRecorder = factory }
}

// WithDeviceResolver supplies the Device Arbitrator. Required.
func WithDeviceResolver(r DeviceResolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithSettingsStore supplies the settings snapshot source. Required.
func WithSettingsStore(s settings.Store) Option {
	return func(m *Manager) { m.settings = s }
}

// WithBus supplies the event bus recording-time ticks are published on.
func WithBus(b *events.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithNotifier supplies the low-time-remaining warning sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithMuter overrides the platform muter (tests only; production uses
// newSystemMuter()).
func WithMuter(mu Muter) Option {
	return func(m *Manager) { m.muter = mu }
}

// WithClock overrides time.Now (tests only).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMaxSecondsFunc overrides the RAM-tiered limit lookup (tests only).
func WithMaxSecondsFunc(f func() int) Option {
	return func(m *Manager) { m.maxSeconds = f }
}

// WithTickInterval overrides the recording-time ticker's cadence (tests
// only; production uses one second, matching the "integer-second boundary"
// requirement in §4.C).
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.tickInterval = d }
}

// WithLidStateFunc supplies clamshell-mode (laptop lid closed) detection.
// Without one, clamshell mode is always reported closed-false, matching a
// desktop machine with no lid.
func WithLidStateFunc(f func() bool) Option {
	return func(m *Manager) { m.lidClosed = f }
}

// WithOnTimeLimit supplies the callback the RAM-tiered time-limit ticker
// invokes once elapsed reaches the max (§4.C: "auto-triggers the stop
// action at the limit"). Production wiring must point this at the same
// stop path a normal shortcut release drives (internal/transcribe.Orchestrator.StopSession),
// so the auto-stop runs the full unmute/sound/transcribe/post-process/
// history/paste pipeline rather than only flipping this package's own
// state machine back to Idle. Without one, the ticker falls back to
// calling StopRecording directly, which only does the latter.
func WithOnTimeLimit(f func(bindingID string)) Option {
	return func(m *Manager) { m.onTimeLimit = f }
}

// Manager owns the recording state machine end to end.
type Manager struct {
	mu sync.Mutex

	newRecorder func() Recorder
	resolver    DeviceResolver
	settings    settings.Store
	bus         *events.Bus
	notifier    Notifier
	muter       Muter
	now          func() time.Time
	maxSeconds   func() int
	lidClosed    func() bool
	tickInterval time.Duration
	onTimeLimit  func(bindingID string)

	rec  Recorder
	mode Mode

	state           State
	hasRecordedOnce bool
	muted           bool

	tickerStop chan struct{}
	tickerDone chan struct{}
}

// NewManager constructs a Manager in the Idle state with no recorder
// constructed yet (WarmupRecorder or the first PrepareRecording does that).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		muter:      newSystemMuter(),
		now:        time.Now,
		maxSeconds: defaultMaxSeconds,
		notifier:     noopNotifier{},
		lidClosed:    func() bool { return false },
		tickInterval: time.Second,
		state:        State{Kind: Idle},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.onTimeLimit == nil {
		m.onTimeLimit = func(bindingID string) { m.StopRecording(bindingID) }
	}
	return m
}

// WarmupRecorder constructs the Recorder (loading the VAD model) without
// opening the stream, so the mic indicator does not light early (§4.C).
func (m *Manager) WarmupRecorder() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		m.rec = m.newRecorder()
	}
}

func (m *Manager) ensureRecorder() Recorder {
	if m.rec == nil {
		m.rec = m.newRecorder()
	}
	return m.rec
}

// PrepareRecording transitions Idle -> Preparing, rejecting if the manager
// is in any other state.
func (m *Manager) PrepareRecording(bindingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Kind != Idle {
		return false
	}
	m.state = State{Kind: Preparing, BindingID: bindingID}
	return true
}

// TryStartRecording validates the Preparing-for-same-binding precondition,
// opens the stream in on-demand mode, starts the recorder, and transitions
// to Recording.
func (m *Manager) TryStartRecording(ctx context.Context, bindingID, sessionID string) bool {
	m.mu.Lock()
	if m.state.Kind != Preparing || m.state.BindingID != bindingID {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	rec := m.ensureOpen(ctx)
	if rec == nil {
		m.mu.Lock()
		m.state = State{Kind: Idle}
		m.mu.Unlock()
		return false
	}

	if err := rec.Start(); err != nil {
		m.mu.Lock()
		m.state = State{Kind: Idle}
		m.mu.Unlock()
		return false
	}

	m.mu.Lock()
	snap := m.settings.Snapshot()
	m.hasRecordedOnce = true
	if snap.MuteWhileRecording {
		if err := m.muter.Mute(); err == nil {
			m.muted = true
		}
	}
	m.state = State{Kind: Recording, BindingID: bindingID, SessionID: sessionID}
	m.startTicker()
	m.mu.Unlock()
	return true
}

// ensureOpen resolves the device and opens the stream if it is not already
// open, returning the shared Recorder (or nil on failure). Must be called
// without m.mu held.
func (m *Manager) ensureOpen(ctx context.Context) Recorder {
	m.mu.Lock()
	rec := m.ensureRecorder()
	alreadyOpen := rec.IsOpen()
	resolver := m.resolver
	m.mu.Unlock()

	if alreadyOpen {
		return rec
	}

	handle, transport, err := resolver.Resolve(m.policy())
	if err != nil {
		return nil
	}
	if err := rec.Open(ctx, handle); err != nil {
		return nil
	}
	_ = transport // device.Prewarm is invoked separately by PrewarmBluetoothMic
	return rec
}

func (m *Manager) policy() device.Policy {
	snap := m.settings.Snapshot()
	return device.Policy{
		ClamshellClosed:     m.lidClosed(),
		ClamshellMicrophone: snap.ClamshellMicrophone,
		SelectedMicrophone:  snap.SelectedMicrophone,
	}
}

// StopRecording stops a Recording (or aborts a Preparing) for bindingID.
// The second return value reports whether any transition happened at all;
// samples is nil when stopped during Preparing or on a stale/mismatched
// call.
func (m *Manager) StopRecording(bindingID string) (samples []float32, ok bool) {
	m.mu.Lock()
	switch {
	case m.state.Kind == Preparing && m.state.BindingID == bindingID:
		m.state = State{Kind: Idle}
		m.mu.Unlock()
		return nil, true

	case m.state.Kind == Recording && m.state.BindingID == bindingID:
		m.stopTickerLocked()
		rec := m.rec
		mode := m.mode
		muted := m.muted
		m.muted = false
		m.state = State{Kind: Idle}
		m.mu.Unlock()

		out := rec.Stop()
		if mode == OnDemand {
			rec.Close()
		}
		if muted {
			m.muter.Unmute()
		}

		if len(out) == 0 {
			m.forceRestart(mode, rec)
			return out, true
		}
		if len(out) < shortRecordingCeiling {
			out = padToLength(out, padTargetSamples)
		}
		return out, true

	default:
		m.mu.Unlock()
		return nil, false
	}
}

func padToLength(samples []float32, length int) []float32 {
	if len(samples) >= length {
		return samples
	}
	padded := make([]float32, length)
	copy(padded, samples)
	return padded
}

// forceRestart reopens the stream after a zero-sample stop, which usually
// means the OS silently killed the stream (sleep/wake) (§4.C).
func (m *Manager) forceRestart(mode Mode, rec Recorder) {
	rec.Close()
	if mode != AlwaysOn {
		return
	}
	handle, _, err := m.resolver.Resolve(m.policy())
	if err != nil {
		return
	}
	rec.Open(context.Background(), handle)
}

// CancelRecording transitions to Idle immediately, discarding samples, and
// closes the mic if on-demand.
func (m *Manager) CancelRecording() {
	m.mu.Lock()
	if m.state.Kind == Idle {
		m.mu.Unlock()
		return
	}
	m.stopTickerLocked()
	rec := m.rec
	mode := m.mode
	muted := m.muted
	m.muted = false
	wasRecording := m.state.Kind == Recording
	m.state = State{Kind: Idle}
	m.mu.Unlock()

	if wasRecording && rec != nil {
		rec.Stop()
	}
	if rec != nil && mode == OnDemand && rec.IsOpen() {
		rec.Close()
	}
	if muted {
		m.muter.Unmute()
	}
}

// UpdateMode switches between AlwaysOn and OnDemand. AlwaysOn opens the mic
// immediately and keeps it open; OnDemand closes it once Idle is reached.
func (m *Manager) UpdateMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	rec := m.ensureRecorder()
	idle := m.state.Kind == Idle
	m.mu.Unlock()

	if mode == AlwaysOn && !rec.IsOpen() {
		m.ensureOpen(context.Background())
		return
	}
	if mode == OnDemand && idle && rec.IsOpen() {
		rec.Close()
	}
}

// UpdateSelectedDevice resets the recorder's cached config, resets
// first-trigger status, and restarts the stream if it was open.
func (m *Manager) UpdateSelectedDevice() {
	m.mu.Lock()
	rec := m.ensureRecorder()
	m.hasRecordedOnce = false
	wasOpen := rec.IsOpen()
	m.mu.Unlock()

	rec.ResetCache()
	if wasOpen {
		rec.Close()
		m.ensureOpen(context.Background())
	}
}

// PrewarmBluetoothMic opens and briefly holds the stream if the resolved
// device is Bluetooth and no stream is open yet, to trigger the A2DP->HFP
// profile switch ahead of the user's first press (§4.B).
func (m *Manager) PrewarmBluetoothMic(ctx context.Context) error {
	m.mu.Lock()
	rec := m.ensureRecorder()
	resolver := m.resolver
	m.mu.Unlock()

	handle, transport, err := resolver.Resolve(m.policy())
	if err != nil {
		return err
	}
	return device.Prewarm(rec, func() error { return rec.Open(ctx, handle) }, transport)
}

// ApplyMute mutes system output unconditionally (used by callers outside
// the start/stop path, e.g. settings toggling mid-recording).
func (m *Manager) ApplyMute() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.muted {
		return nil
	}
	if err := m.muter.Mute(); err != nil {
		return err
	}
	m.muted = true
	return nil
}

// RemoveMute undoes ApplyMute. Safe to call even if not muted.
func (m *Manager) RemoveMute() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.muted {
		return nil
	}
	if err := m.muter.Unmute(); err != nil {
		return err
	}
	m.muted = false
	return nil
}

// State returns a snapshot of the current recording state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasRecordedOnce reports whether a recording has ever successfully
// started since the last UpdateSelectedDevice (used for first-trigger
// slow-open UX messaging upstream).
func (m *Manager) HasRecordedOnce() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasRecordedOnce
}

// startTicker starts the drift-free per-second recording-time ticker. Must
// be called with m.mu held; it unlocks/relocks internally is not needed
// since the goroutine runs independently.
func (m *Manager) startTicker() {
	stop := make(chan struct{})
	done := make(chan struct{})
	m.tickerStop = stop
	m.tickerDone = done

	start := m.now()
	max := m.maxSeconds()
	bindingID := m.state.BindingID

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.tickInterval)
		defer ticker.Stop()
		warned := false
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				elapsed := int(m.now().Sub(start).Seconds())
				m.publishRecordingTime(uint32(elapsed), uint32(max))
				remaining := max - elapsed
				if !warned && remaining <= 30 && remaining >= 0 {
					warned = true
					m.notifier.WarnLowTime(remaining)
				}
				if elapsed >= max {
					m.onTimeLimit(bindingID)
					return
				}
			}
		}
	}()
}

func (m *Manager) publishRecordingTime(elapsed, max uint32) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.RecordingTime, events.RecordingTimePayload{
		ElapsedSeconds: elapsed,
		MaxSeconds:     max,
	})
}

// stopTickerLocked stops the ticker goroutine. Must be called with m.mu
// held; it does not wait for the goroutine to fully exit to avoid
// deadlocking when called from within the ticker's own auto-stop path.
func (m *Manager) stopTickerLocked() {
	if m.tickerStop == nil {
		return
	}
	select {
	case <-m.tickerStop:
	default:
		close(m.tickerStop)
	}
	m.tickerStop = nil
	m.tickerDone = nil
}
