// Command codictate is the real-time capture/dispatch core's process
// entry point: it wires the Device Arbitrator, Recording Manager, Shortcut
// Dispatcher, Transcription Orchestrator, Paste Engine, Correction
// Pipeline, and their ambient collaborators (settings store, event bus,
// history, tray, notifications, chime) together and runs the debug/status
// renderer until the user quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gordonklaus/portaudio"

	"github.com/aidynamicsolutions/codictate/internal/audio"
	"github.com/aidynamicsolutions/codictate/internal/chime"
	"github.com/aidynamicsolutions/codictate/internal/correction"
	"github.com/aidynamicsolutions/codictate/internal/device"
	"github.com/aidynamicsolutions/codictate/internal/dispatch"
	"github.com/aidynamicsolutions/codictate/internal/events"
	"github.com/aidynamicsolutions/codictate/internal/history"
	"github.com/aidynamicsolutions/codictate/internal/mlxwatch"
	"github.com/aidynamicsolutions/codictate/internal/notify"
	"github.com/aidynamicsolutions/codictate/internal/overlay"
	"github.com/aidynamicsolutions/codictate/internal/paste"
	"github.com/aidynamicsolutions/codictate/internal/postprocess"
	"github.com/aidynamicsolutions/codictate/internal/recording"
	"github.com/aidynamicsolutions/codictate/internal/settings"
	"github.com/aidynamicsolutions/codictate/internal/sidecar"
	"github.com/aidynamicsolutions/codictate/internal/transcribe"
	"github.com/aidynamicsolutions/codictate/internal/transcriber"
	"github.com/aidynamicsolutions/codictate/internal/tray"
	"github.com/aidynamicsolutions/codictate/internal/ui"
	"github.com/aidynamicsolutions/codictate/internal/undo"
)

// pasterAdapter adapts *paste.Engine (which needs a method/handling pair
// per call) to transcribe.Paster's single-text signature by reading the
// current choice from settings at paste time.
type pasterAdapter struct {
	engine *paste.Engine
	store  settings.Store
}

func (p pasterAdapter) Paste(ctx context.Context, text string) error {
	snap := p.store.Snapshot()
	return p.engine.Paste(ctx, text, snap.PasteMethod, snap.ClipboardHandling)
}

// recordingNotifierAdapter adapts *notify.Notifier to recording.Notifier.
type recordingNotifierAdapter struct{ n *notify.Notifier }

func (r recordingNotifierAdapter) WarnLowTime(remainingSeconds int) {
	r.n.Notify("Recording time running low", fmt.Sprintf("%ds remaining before the recording auto-stops", remainingSeconds))
}

// noopStatsRollback implements undo.StatsRollback: no stats ledger exists
// to roll back (history.Store keeps completed records, not the
// word-count/duration/filler-count contribution ledger spec §4.J's Undo
// describes), so an undo simply has nothing to reverse on that side.
type noopStatsRollback struct{}

func (noopStatsRollback) Rollback(string) error { return nil }

// appQuitter stops the tea.Program when the tray's Quit item fires.
type appQuitter struct{ p *tea.Program }

func (q appQuitter) Quit() { q.p.Quit() }

// actionHandlerProxy breaks the construction cycle between the Dispatcher
// (which needs an ActionHandler up front) and mainActionHandler (which
// needs the Orchestrator, and the Orchestrator needs the Dispatcher as its
// SessionShortcuts collaborator): the Dispatcher is built against the
// proxy, and real is filled in once the Orchestrator exists.
type actionHandlerProxy struct {
	real dispatch.ActionHandler
}

func (p *actionHandlerProxy) Start(source, bindingID, shortcut string) {
	if p.real != nil {
		p.real.Start(source, bindingID, shortcut)
	}
}

func (p *actionHandlerProxy) Stop(source, bindingID, shortcut string) {
	if p.real != nil {
		p.real.Stop(source, bindingID, shortcut)
	}
}

// timeLimitProxy breaks the same construction-order cycle as
// actionHandlerProxy: the Recording Manager's RAM-tiered time-limit ticker
// needs to drive the Orchestrator's full stop pipeline (§4.C "auto-triggers
// the stop action at the limit"), but the Orchestrator needs the already-
// constructed Recording Manager as its own collaborator. The Manager is
// built against the proxy, and orchestrator is patched in once it exists.
type timeLimitProxy struct {
	orchestrator *transcribe.Orchestrator
}

func (p *timeLimitProxy) stop(bindingID string) {
	if p.orchestrator != nil {
		p.orchestrator.StopSession(context.Background(), bindingID)
	}
}

// correctionActionHandler runs the Correction Pipeline end to end for a
// single shortcut press: capture, dispatch, and — since this build has no
// interactive accept/dismiss surface (internal/ui.Model is a pure
// observer, spec §6) — auto-accept a result that actually changed
// anything.
type correctionActionHandler struct {
	mgr    *correction.Manager
	logger *log.Logger
}

func (c correctionActionHandler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := c.mgr.Run(ctx)
	if err != nil {
		c.logger.Printf("correction: %v", err)
		return
	}
	if !result.HasChanges {
		return
	}
	if err := c.mgr.Accept(ctx); err != nil {
		c.logger.Printf("correction accept: %v", err)
	}
}

// mainActionHandler implements dispatch.ActionHandler, routing each
// binding id to the collaborator that actually owns its behavior (spec
// §4.D: the Dispatcher only decides when start/stop fires, never what it
// does).
type mainActionHandler struct {
	orchestrator *transcribe.Orchestrator
	undoMgr      *undo.Manager
	correction   correctionActionHandler
	logger       *log.Logger
}

const (
	bindingUndo       = "undo"
	bindingCorrection = "correction"
)

func (h mainActionHandler) Start(source, bindingID, shortcut string) {
	switch bindingID {
	case dispatch.BindingTranscribe, dispatch.BindingTranscribeHandsFree:
		ctx := context.Background()
		h.orchestrator.StartSession(ctx, bindingID)
	case dispatch.BindingCancel:
		h.orchestrator.Cancel()
	case bindingUndo:
		if h.orchestrator.IsAnySessionActive() {
			// spec §4.J step 1: an active session takes the undo shortcut
			// as a cancel instead of an undo.
			h.orchestrator.Cancel()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.undoMgr.Trigger(ctx); err != nil {
			h.logger.Printf("undo: %v", err)
		}
	case bindingCorrection:
		go h.correction.run()
	}
}

func (h mainActionHandler) Stop(source, bindingID, shortcut string) {
	switch bindingID {
	case dispatch.BindingTranscribe, dispatch.BindingTranscribeHandsFree:
		ctx := context.Background()
		h.orchestrator.StopSession(ctx, bindingID)
	}
}

// registryFromSettings copies every configured binding into a
// dispatch.Registry by its string key, sidestepping any naming mismatch
// between this package's own BindingX constants and settings' persisted
// binding ids — both already agree on the string values.
func registryFromSettings(snap *settings.Settings) *dispatch.Registry {
	bindings := make(map[string]dispatch.Binding, len(snap.Bindings))
	for id, b := range snap.Bindings {
		bindings[id] = dispatch.Binding{ID: b.ID, Current: b.Current, Default: b.Default}
	}
	return dispatch.NewRegistry(bindings)
}

func run() {
	debug := flag.Bool("debug", false, "enable debug logging to stderr")
	settingsPath := flag.String("settings", settings.DefaultPath(), "path to the settings TOML file")
	flag.Parse()

	var logger *log.Logger
	if *debug {
		logger = log.New(os.Stderr, "[DEBUG] ", log.Ltime|log.Lmicroseconds)
	} else {
		logger = log.New(io.Discard, "", 0)
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("portaudio init: %v", err)
	}
	defer portaudio.Terminate()

	store, err := settings.NewFileStore(*settingsPath)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	bus := events.NewBus()
	registry := registryFromSettings(store.Snapshot())

	// Paste Engine.
	injector := paste.NewInjector()
	clipboard := paste.SystemClipboard{}
	pasteEngine := paste.New(injector, clipboard)

	// Overlay: no cursor-position source is wired (nil is a documented
	// valid dependency — position tracking becomes a no-op).
	ov := overlay.New(bus, nil)

	// Device Arbitrator and audio capture.
	arbitrator := device.New()
	recorderFactory := func() recording.Recorder {
		return audio.New(audio.WithLevelCallback(ov.PublishMicLevel))
	}

	dataDir := settings.DefaultDataDir()
	historyStore, err := history.Open(dataDir, bus, logger)
	if err != nil {
		log.Fatalf("open history store: %v", err)
	}
	defer historyStore.Close()

	timeLimit := &timeLimitProxy{}
	recMgr := recording.NewManager(
		recording.WithRecorderFactory(recorderFactory),
		recording.WithDeviceResolver(arbitrator),
		recording.WithSettingsStore(store),
		recording.WithBus(bus),
		recording.WithNotifier(recordingNotifierAdapter{n: notify.New()}),
		recording.WithOnTimeLimit(timeLimit.stop),
	)
	recMgr.WarmupRecorder()
	if err := recMgr.PrewarmBluetoothMic(context.Background()); err != nil {
		logger.Printf("bluetooth mic prewarm: %v", err)
	}

	// Recognizer: provider selection is process wiring (like the
	// post-process MLX sidecar's default base URL), not a persisted
	// Settings field, so it comes from the environment rather than TOML.
	recognizer, err := transcriber.New(transcriber.Config{
		Provider:   envOr("CODICTATE_STT_PROVIDER", "openai"),
		BaseURL:    envOr("CODICTATE_STT_BASE_URL", "http://127.0.0.1:5092"),
		Model:      envOr("CODICTATE_STT_MODEL", "default"),
		TimeoutSec: 30,
		Command:    os.Getenv("CODICTATE_STT_COMMAND"),
	}, logger)
	if err != nil {
		log.Fatalf("create transcriber: %v", err)
	}

	postprocDispatcher := postprocess.NewDispatcher(store, logger)

	mlxWatchCtx, mlxWatchCancel := context.WithCancel(context.Background())
	defer mlxWatchCancel()
	mlxWatcher := mlxwatch.New(postprocDispatcher.MLXBaseURL(), bus, logger)
	go mlxWatcher.Run(mlxWatchCtx)

	// The MLX sidecar is optional infrastructure the user runs themselves;
	// CODICTATE_MLX_SIDECAR_COMMAND opts into having this process manage
	// its lifecycle instead (no Settings field names a launch command, so
	// this is process wiring like the recognizer provider selection above).
	if sidecarCmd := os.Getenv("CODICTATE_MLX_SIDECAR_COMMAND"); sidecarCmd != "" {
		sidecarMgr := sidecar.New(sidecarCmd, nil, postprocDispatcher.MLXBaseURL()+"/health", 0, logger)
		if err := sidecarMgr.Start(context.Background()); err != nil {
			logger.Printf("mlx sidecar: %v", err)
		} else {
			defer sidecarMgr.Stop()
		}
	}

	chimePlayer, err := chime.New("", "", store.Snapshot().AudioFeedback, logger)
	if err != nil {
		log.Fatalf("create chime player: %v", err)
	}

	notifier := notify.New()

	undoMgr := undo.New(injector, noopStatsRollback{}, bus)

	contextReader := correction.NewContextReader(clipboard, injector)
	correctionMgr := correction.New(contextReader, contextReader, postprocDispatcher, store, notifier)

	// The debug/status renderer and the tray both need to exist before the
	// Orchestrator (WithTray) and the Dispatcher (ActionHandler, via the
	// proxy below) can be built, since the Orchestrator itself becomes the
	// Dispatcher's SessionShortcuts collaborator.
	model := ui.New(bus, 64)
	program := tea.NewProgram(model, tea.WithAltScreen())
	tr := tray.New(appQuitter{p: program}, logger)

	osRegistrar := dispatch.NewGlobalRegistrar()
	proxy := &actionHandlerProxy{}
	dispatcher := dispatch.NewDispatcher(proxy, registry, osRegistrar)
	if runtime.GOOS == "linux" {
		dispatcher.DisableLinuxCancelShortcut()
	}

	orchestrator := transcribe.New(
		recMgr,
		dispatcher,
		ov,
		bus,
		store,
		recognizer,
		postprocDispatcher,
		pasterAdapter{engine: pasteEngine, store: store},
		transcribe.WithNotifier(notifier),
		transcribe.WithChime(chimePlayer),
		transcribe.WithHistorySaver(historyStore),
		transcribe.WithTray(tr),
		transcribe.WithUndoRegistrar(undoMgr),
	)

	proxy.real = mainActionHandler{
		orchestrator: orchestrator,
		undoMgr:      undoMgr,
		correction:   correctionActionHandler{mgr: correctionMgr, logger: logger},
		logger:       logger,
	}
	timeLimit.orchestrator = orchestrator

	if err := dispatcher.RegisterGlobalShortcuts(); err != nil {
		log.Fatalf("register global shortcuts: %v", err)
	}

	fnMonitor := dispatch.NewFnMonitor(dispatcher.NewFnActions())
	go func() {
		if err := fnMonitor.Start(); err != nil {
			logger.Printf("fn monitor: %v", err)
		}
	}()
	defer fnMonitor.Stop()

	stopSignal := make(chan struct{})
	defer close(stopSignal)
	dispatch.WatchSIGUSR2(dispatcher, dispatch.BindingTranscribeHandsFree, stopSignal)

	go tr.Run()

	if _, err := program.Run(); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dispatch.Init(run)
}
