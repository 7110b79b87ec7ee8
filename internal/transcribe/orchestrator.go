// Package transcribe implements the Transcription Orchestrator (spec
// §4.F): the session lifecycle between a shortcut press and a pasted
// result, the dictionary/Chinese-variant/post-process pipeline applied to
// a non-empty transcript, and the recognizer model's idle-unload timer.
package transcribe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/audio"
	"github.com/aidynamicsolutions/codictate/internal/coreerr"
	"github.com/aidynamicsolutions/codictate/internal/events"
	"github.com/aidynamicsolutions/codictate/internal/session"
	"github.com/aidynamicsolutions/codictate/internal/settings"
	"github.com/aidynamicsolutions/codictate/internal/textconv"
)

// recognizerSampleRate is the recognizer's required mono input rate,
// matching internal/audio's capture target (§4.A).
const recognizerSampleRate = 16000

// Recognizer transcribes a WAV-encoded recording to text. Mirrors the
// teacher's transcriber.Transcriber shape exactly; New-style construction
// and provider selection (openai/command) happen one layer up, in the
// process wiring.
type Recognizer interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// ModelLoader is optionally implemented by a Recognizer that pays load
// latency up front instead of on first use.
type ModelLoader interface {
	Load(ctx context.Context) error
	Unload()
}

// PostProcessDispatcher rewrites already-substituted prompt text through
// whichever provider/model the caller names. The orchestrator does the
// provider/prompt/model selection and ${output} substitution; the
// dispatcher only has to make the call (spec §4.F step 2).
type PostProcessDispatcher interface {
	Dispatch(ctx context.Context, providerID, model, prompt string) (string, error)
}

// HistorySaver enqueues a background save of one transcription record.
type HistorySaver interface {
	SaveAsync(raw []float32, original, postProcessed, prompt string)
}

// UndoRegistrar records a successful paste as the sole undoable action
// (spec §4.J).
type UndoRegistrar interface {
	RegisterSlot(sourceAction, pastedText, suggestionText, statsToken string)
}

type noopUndoRegistrar struct{}

func (noopUndoRegistrar) RegisterSlot(string, string, string, string) {}

// GrowthSignal records a feature-success signal for growth nudges. No
// production implementation beyond a no-op is in scope (spec.md frames
// growth/analytics as a collaborator with a boundary only).
type GrowthSignal interface {
	RecordSuccess(feature string)
}

// NoopGrowthSignal implements GrowthSignal with no effect.
type NoopGrowthSignal struct{}

func (NoopGrowthSignal) RecordSuccess(string) {}

// Paster pastes the final text (spec §4.G). The orchestrator calls it on
// the goroutine running StopSession; no main-thread dispatch is done here.
type Paster interface {
	Paste(ctx context.Context, text string) error
}

// Notifier surfaces a user-visible failure (e.g. post-process falling back
// to unprocessed text).
type Notifier interface {
	Notify(title, message string)
}

// Chime plays the audio-feedback stop sound.
type Chime interface {
	PlayStop()
}

// RecordingManager is the subset of internal/recording.Manager the
// orchestrator drives.
type RecordingManager interface {
	PrepareRecording(bindingID string) bool
	TryStartRecording(ctx context.Context, bindingID, sessionID string) bool
	StopRecording(bindingID string) (samples []float32, ok bool)
	CancelRecording()
}

// SessionShortcuts is the subset of internal/dispatch.Dispatcher the
// orchestrator drives to keep the cancel shortcut live only during an
// active session.
type SessionShortcuts interface {
	StartSession()
	EndSession()
}

// Overlay is the subset of internal/overlay.Overlay the orchestrator
// drives.
type Overlay interface {
	ShowRecording(sessionID string) bool
	ShowTranscribing(sessionID string) bool
	ShowProcessing(sessionID string) bool
	CancelForSession(sessionID string) bool
	Hide() bool
}

// Tray is the subset of tray state transitions the orchestrator drives.
type Tray interface {
	SetRecording()
	SetIdle()
}

const cancelSettleDelay = 600 * time.Millisecond

// Orchestrator implements spec §4.F end to end.
type Orchestrator struct {
	manager    RecordingManager
	shortcuts  SessionShortcuts
	overlay    Overlay
	tray       Tray
	bus        *events.Bus
	store      settings.Store
	recognizer Recognizer
	postproc   PostProcessDispatcher
	history    HistorySaver
	growth     GrowthSignal
	paster     Paster
	notifier   Notifier
	chime      Chime
	undo       UndoRegistrar

	newSessionID func() string
	sleep        func(time.Duration)

	mu          sync.Mutex
	sessionID   string
	unloadTimer *time.Timer
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option  { return func(o *Orchestrator) { o.notifier = n } }
func WithChime(c Chime) Option        { return func(o *Orchestrator) { o.chime = c } }
func WithGrowthSignal(g GrowthSignal) Option {
	return func(o *Orchestrator) { o.growth = g }
}
func WithHistorySaver(h HistorySaver) Option { return func(o *Orchestrator) { o.history = h } }
func WithTray(t Tray) Option                 { return func(o *Orchestrator) { o.tray = t } }
func WithUndoRegistrar(u UndoRegistrar) Option { return func(o *Orchestrator) { o.undo = u } }

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}

type noopChime struct{}

func (noopChime) PlayStop() {}

type noopTray struct{}

func (noopTray) SetRecording() {}
func (noopTray) SetIdle()      {}

// New builds an Orchestrator wiring the Recording Manager, the Dispatcher
// (for the cancel-shortcut session gate), the Overlay, the event bus, the
// settings store, a Recognizer, a PostProcessDispatcher, and a Paster.
func New(
	manager RecordingManager,
	shortcuts SessionShortcuts,
	overlay Overlay,
	bus *events.Bus,
	store settings.Store,
	recognizer Recognizer,
	postproc PostProcessDispatcher,
	paster Paster,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		manager:      manager,
		shortcuts:    shortcuts,
		overlay:      overlay,
		bus:          bus,
		store:        store,
		recognizer:   recognizer,
		postproc:     postproc,
		paster:       paster,
		growth:       NoopGrowthSignal{},
		notifier:     noopNotifier{},
		chime:        noopChime{},
		tray:         noopTray{},
		undo:         noopUndoRegistrar{},
		newSessionID: session.New,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InitiateModelLoad kicks off a background model load, idempotent and off
// the critical path (spec §4.F model lifecycle). Safe to call even when
// the recognizer does not implement ModelLoader.
func (o *Orchestrator) InitiateModelLoad() {
	loader, ok := o.recognizer.(ModelLoader)
	if !ok {
		return
	}
	go func() { _ = loader.Load(context.Background()) }()
}

// IsAnySessionActive reports whether a session id is currently live.
func (o *Orchestrator) IsAnySessionActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID != ""
}

// StartSession implements the transcribe.start event (spec §4.F): mints a
// session id, initiates the background model load, shows Recording, and
// asks the manager to start.
func (o *Orchestrator) StartSession(ctx context.Context, bindingID string) {
	o.stopUnloadTimer()
	o.InitiateModelLoad()

	if !o.manager.PrepareRecording(bindingID) {
		return
	}
	id := o.newSessionID()
	o.mu.Lock()
	o.sessionID = id
	o.mu.Unlock()

	o.tray.SetRecording()
	o.overlay.ShowRecording(id)
	o.shortcuts.StartSession()
	o.bus.Publish(events.SessionStarted, id)

	if !o.manager.TryStartRecording(ctx, bindingID, id) {
		o.clearSession()
		o.shortcuts.EndSession()
		o.tray.SetIdle()
		o.overlay.Hide()
	}
}

// StopSession implements the transcribe.stop event (spec §4.F): tears
// down the session-scoped shortcut and overlay state, runs the recognizer,
// and for a non-empty result of a session that was not cancelled in the
// meantime runs the five-step pipeline in order.
func (o *Orchestrator) StopSession(ctx context.Context, bindingID string) {
	o.shortcuts.EndSession()
	if o.store.Snapshot().AudioFeedback {
		o.chime.PlayStop()
	}

	sessionID := o.currentSessionID()
	o.overlay.ShowTranscribing(sessionID)

	samples, ok := o.manager.StopRecording(bindingID)
	if !ok {
		o.clearSession()
		o.tray.SetIdle()
		o.overlay.Hide()
		o.armUnloadTimer()
		return
	}

	wav, err := audio.EncodeWAV(samples, recognizerSampleRate)
	var text string
	if err == nil {
		text, err = o.recognizer.Transcribe(ctx, wav)
	}
	if err != nil {
		o.notifier.Notify("Transcription failed", err.Error())
	}

	// A Cancel during transcription has cleared the session id; the
	// result is then dropped instead of pasted.
	if strings.TrimSpace(text) != "" && sessionID != "" && o.currentSessionID() == sessionID {
		o.runPipeline(ctx, sessionID, bindingID, samples, text)
	}

	o.clearSession()
	o.tray.SetIdle()
	o.overlay.Hide()
	o.armUnloadTimer()
}

// runPipeline executes the non-empty-result steps of spec §4.F in order:
// dictionary + Chinese variant conversion, post-process dispatch, history
// save, paste, and a growth signal.
func (o *Orchestrator) runPipeline(ctx context.Context, sessionID, bindingID string, raw []float32, text string) {
	snap := o.store.Snapshot()

	converted := applyDictionary(text, snap.Dictionary, snap.WordCorrectionThreshold)
	converted = textconv.ConvertForLanguage(converted, snap.SelectedLanguage)

	final := converted
	feature := "transcribe"
	if processed, ran := o.dispatchPostProcess(ctx, sessionID, snap, converted); ran {
		final = processed
		feature = "transcribe_with_post_process"
	}

	if o.history != nil {
		o.history.SaveAsync(raw, text, final, snap.SelectedPromptID)
	}

	if err := o.paster.Paste(ctx, final); err != nil {
		o.notifier.Notify("Paste failed", err.Error())
	} else {
		o.undo.RegisterSlot(bindingID, final, text, "")
	}

	o.growth.RecordSuccess(feature)
}

// dispatchPostProcess selects a provider/prompt/model per spec §4.F step 2
// and runs the Post-Process Dispatcher, falling back to the unprocessed
// text on any failure or missing configuration.
func (o *Orchestrator) dispatchPostProcess(ctx context.Context, sessionID string, snap *settings.Settings, text string) (string, bool) {
	if !snap.PostProcessEnabled {
		return text, false
	}
	providerID := snap.PostProcessProviderID
	providerCfg, ok := snap.PostProcessProviders[providerID]
	if !ok || providerID == "" {
		return text, false
	}
	prompt := selectPrompt(snap)
	if prompt == "" {
		return text, false
	}
	if providerCfg.Model == "" {
		return text, false
	}

	o.overlay.ShowProcessing(sessionID)
	substituted := strings.ReplaceAll(prompt, "${output}", text)
	out, err := o.postproc.Dispatch(ctx, providerID, providerCfg.Model, substituted)
	if err != nil {
		o.notifier.Notify("Post-process failed", coreerr.Wrap(coreerr.KindPostProcessFailed, "falling back to unprocessed text", err).Error())
		return text, false
	}
	return stripZeroWidth(out), true
}

func selectPrompt(snap *settings.Settings) string {
	for _, p := range snap.Prompts {
		if p.ID == snap.SelectedPromptID {
			return p.Text
		}
	}
	return ""
}

// stripZeroWidth removes zero-width characters some post-process
// providers insert (U+200B, U+200C, U+200D, U+FEFF).
func stripZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '​', '‌', '‍', '﻿':
			return -1
		}
		return r
	}, s)
}

// Cancel implements the central cancellation helper (spec §4.F): it clears
// the session id synchronously and first so any in-flight StopSession
// refuses to paste, shows Cancelling, unregisters the cancel shortcut, and
// asks the manager to cancel; the 600ms settle and tray/overlay reset to
// Idle happen on a background goroutine.
func (o *Orchestrator) Cancel() {
	sessionID := o.clearSession()
	o.overlay.CancelForSession(sessionID)
	o.shortcuts.EndSession()
	o.manager.CancelRecording()

	go func() {
		o.sleep(cancelSettleDelay)
		o.tray.SetIdle()
		o.overlay.Hide()
		o.armUnloadTimer()
	}()
}

func (o *Orchestrator) currentSessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// clearSession zeroes the active session id and returns its prior value.
func (o *Orchestrator) clearSession() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.sessionID
	o.sessionID = ""
	return prev
}

// armUnloadTimer (re)starts the idle-unload timer per model_unload_timeout
// (spec §4.F model lifecycle): nil means never unload, &0 means unload
// immediately, otherwise unload after that many seconds of no active
// session.
func (o *Orchestrator) armUnloadTimer() {
	o.stopUnloadTimer()
	loader, ok := o.recognizer.(ModelLoader)
	if !ok {
		return
	}
	secs := o.store.Snapshot().ModelUnloadTimeout.ToSeconds()
	if secs == nil {
		return
	}
	if *secs == 0 {
		loader.Unload()
		return
	}

	o.mu.Lock()
	o.unloadTimer = time.AfterFunc(time.Duration(*secs)*time.Second, func() {
		if o.IsAnySessionActive() {
			return
		}
		loader.Unload()
	})
	o.mu.Unlock()
}

func (o *Orchestrator) stopUnloadTimer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unloadTimer != nil {
		o.unloadTimer.Stop()
		o.unloadTimer = nil
	}
}
