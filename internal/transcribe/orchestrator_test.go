package transcribe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/events"
	"github.com/aidynamicsolutions/codictate/internal/settings"
)

type fakeManager struct {
	mu       sync.Mutex
	prepared bool
	started  bool
	stopSamples []float32
	stopOK   bool
	cancelled bool
}

func (f *fakeManager) PrepareRecording(string) bool { f.prepared = true; return true }
func (f *fakeManager) TryStartRecording(context.Context, string, string) bool {
	f.started = true
	return true
}
func (f *fakeManager) StopRecording(string) ([]float32, bool) { return f.stopSamples, f.stopOK }
func (f *fakeManager) CancelRecording()                       { f.cancelled = true }

type fakeShortcuts struct{ started, ended int }

func (f *fakeShortcuts) StartSession() { f.started++ }
func (f *fakeShortcuts) EndSession()   { f.ended++ }

type fakeOverlay struct {
	mu               sync.Mutex
	lastRecordingID  string
	lastTranscribeID string
	lastProcessingID string
	lastCancelID     string
	hidden           int
}

func (f *fakeOverlay) ShowRecording(id string) bool    { f.lastRecordingID = id; return true }
func (f *fakeOverlay) ShowTranscribing(id string) bool { f.lastTranscribeID = id; return true }
func (f *fakeOverlay) ShowProcessing(id string) bool   { f.lastProcessingID = id; return true }
func (f *fakeOverlay) CancelForSession(id string) bool { f.lastCancelID = id; return true }
func (f *fakeOverlay) Hide() bool                      { f.hidden++; return true }

type fakeTray struct{ recording, idle int }

func (f *fakeTray) SetRecording() { f.recording++ }
func (f *fakeTray) SetIdle()      { f.idle++ }

type fakeRecognizer struct{ text string }

func (f *fakeRecognizer) Transcribe(context.Context, []byte) (string, error) { return f.text, nil }

type fakePostProcess struct{ called bool }

func (f *fakePostProcess) Dispatch(context.Context, string, string, string) (string, error) {
	f.called = true
	return "processed", nil
}

type fakePaster struct{ pasted []string }

func (f *fakePaster) Paste(_ context.Context, text string) error {
	f.pasted = append(f.pasted, text)
	return nil
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakeHistory) SaveAsync(_ []float32, original, postProcessed, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, original+"|"+postProcessed)
}

type fakeGrowth struct{ features []string }

func (f *fakeGrowth) RecordSuccess(feature string) { f.features = append(f.features, feature) }

func newTestStore(mutate func(*settings.Settings)) settings.Store {
	s := settings.Default()
	if mutate != nil {
		mutate(s)
	}
	return &fixedStore{s: s}
}

type fixedStore struct{ s *settings.Settings }

func (f *fixedStore) Snapshot() *settings.Settings { cp := *f.s; return &cp }
func (f *fixedStore) Update(fn func(*settings.Settings)) error {
	fn(f.s)
	return nil
}

func newOrchestratorForTest(t *testing.T, manager *fakeManager, overlay *fakeOverlay, recognizer *fakeRecognizer, postproc *fakePostProcess, paster *fakePaster, history *fakeHistory, growth *fakeGrowth, store settings.Store) (*Orchestrator, *fakeShortcuts, *fakeTray) {
	t.Helper()
	shortcuts := &fakeShortcuts{}
	tray := &fakeTray{}
	bus := events.NewBus()
	o := New(manager, shortcuts, overlay, bus, store, recognizer, postproc, paster,
		WithHistorySaver(history), WithGrowthSignal(growth), WithTray(tray))
	return o, shortcuts, tray
}

// TestSessionIDCorrelatesAcrossStartAndStop verifies the session id minted
// on StartSession is the same one the overlay sees throughout StopSession
// (spec §3 invariant 4: one session id ties a press to its eventual paste).
func TestSessionIDCorrelatesAcrossStartAndStop(t *testing.T) {
	manager := &fakeManager{stopOK: true, stopSamples: []float32{0.1, 0.2}}
	overlay := &fakeOverlay{}
	recognizer := &fakeRecognizer{text: "hello world"}
	postproc := &fakePostProcess{}
	paster := &fakePaster{}
	history := &fakeHistory{}
	growth := &fakeGrowth{}
	store := newTestStore(nil)

	var seenIDs []string
	o, _, _ := newOrchestratorForTest(t, manager, overlay, recognizer, postproc, paster, history, growth, store)
	o.newSessionID = func() string {
		id := "abcd1234"
		seenIDs = append(seenIDs, id)
		return id
	}

	o.StartSession(context.Background(), "transcribe")
	if overlay.lastRecordingID != "abcd1234" {
		t.Fatalf("expected Recording overlay for session abcd1234, got %q", overlay.lastRecordingID)
	}
	if !o.IsAnySessionActive() {
		t.Fatal("expected a session to be active after StartSession")
	}

	o.StopSession(context.Background(), "transcribe")
	if overlay.lastTranscribeID != "abcd1234" {
		t.Fatalf("expected Transcribing overlay for session abcd1234, got %q", overlay.lastTranscribeID)
	}
	if o.IsAnySessionActive() {
		t.Fatal("expected no session active after StopSession completes")
	}
	if len(paster.pasted) != 1 || paster.pasted[0] != "hello world" {
		t.Fatalf("expected final text pasted, got %v", paster.pasted)
	}
	if len(growth.features) != 1 || growth.features[0] != "transcribe" {
		t.Fatalf("expected a plain transcribe growth signal, got %v", growth.features)
	}
}

// TestPostProcessPipelineRunsInOrderAndTagsGrowthSignal exercises spec
// §4.F's five-step non-empty-result pipeline with post-processing enabled.
func TestPostProcessPipelineRunsInOrderAndTagsGrowthSignal(t *testing.T) {
	manager := &fakeManager{stopOK: true, stopSamples: []float32{0.1}}
	overlay := &fakeOverlay{}
	recognizer := &fakeRecognizer{text: "raw transcript"}
	postproc := &fakePostProcess{}
	paster := &fakePaster{}
	history := &fakeHistory{}
	growth := &fakeGrowth{}
	store := newTestStore(func(s *settings.Settings) {
		s.PostProcessEnabled = true
		s.PostProcessProviderID = "openai"
		s.PostProcessProviders = map[string]settings.PostProcessProviderConfig{
			"openai": {Model: "gpt-4o-mini"},
		}
		s.Prompts = []settings.Prompt{{ID: "p1", Name: "Formal", Text: "rewrite: ${output}"}}
		s.SelectedPromptID = "p1"
	})

	o, _, _ := newOrchestratorForTest(t, manager, overlay, recognizer, postproc, paster, history, growth, store)
	o.newSessionID = func() string { return "sess0001" }

	o.StartSession(context.Background(), "transcribe")
	o.StopSession(context.Background(), "transcribe")

	if !postproc.called {
		t.Fatal("expected the post-process dispatcher to be called")
	}
	if overlay.lastProcessingID != "sess0001" {
		t.Fatalf("expected Processing overlay for sess0001, got %q", overlay.lastProcessingID)
	}
	if len(paster.pasted) != 1 || paster.pasted[0] != "processed" {
		t.Fatalf("expected the post-processed text pasted, got %v", paster.pasted)
	}
	if len(growth.features) != 1 || growth.features[0] != "transcribe_with_post_process" {
		t.Fatalf("expected a post-process-tagged growth signal, got %v", growth.features)
	}
	if len(history.saved) != 1 || history.saved[0] != "raw transcript|processed" {
		t.Fatalf("expected history to save both original and post-processed text, got %v", history.saved)
	}
}

// TestEmptyTranscriptSkipsPipeline verifies an empty recognizer result
// never reaches post-process, history, or paste.
func TestEmptyTranscriptSkipsPipeline(t *testing.T) {
	manager := &fakeManager{stopOK: true, stopSamples: []float32{0.1}}
	overlay := &fakeOverlay{}
	recognizer := &fakeRecognizer{text: "   "}
	postproc := &fakePostProcess{}
	paster := &fakePaster{}
	history := &fakeHistory{}
	growth := &fakeGrowth{}
	store := newTestStore(nil)

	o, _, _ := newOrchestratorForTest(t, manager, overlay, recognizer, postproc, paster, history, growth, store)
	o.newSessionID = func() string { return "sess0002" }

	o.StartSession(context.Background(), "transcribe")
	o.StopSession(context.Background(), "transcribe")

	if postproc.called {
		t.Fatal("expected post-process never called for an empty transcript")
	}
	if len(paster.pasted) != 0 {
		t.Fatalf("expected nothing pasted for an empty transcript, got %v", paster.pasted)
	}
	if len(history.saved) != 0 {
		t.Fatalf("expected nothing saved for an empty transcript, got %v", history.saved)
	}
}

// TestCancelClearsSessionBeforeBackgroundSettle verifies the central
// cancellation helper clears the session id synchronously, before the
// 600ms settle, so a racing StopSession sees no active session.
func TestCancelClearsSessionBeforeBackgroundSettle(t *testing.T) {
	manager := &fakeManager{}
	overlay := &fakeOverlay{}
	recognizer := &fakeRecognizer{}
	postproc := &fakePostProcess{}
	paster := &fakePaster{}
	history := &fakeHistory{}
	growth := &fakeGrowth{}
	store := newTestStore(nil)

	o, shortcuts, _ := newOrchestratorForTest(t, manager, overlay, recognizer, postproc, paster, history, growth, store)
	o.newSessionID = func() string { return "sess0003" }
	settled := make(chan struct{})
	o.sleep = func(_ time.Duration) { close(settled) }

	o.StartSession(context.Background(), "transcribe")
	o.Cancel()

	if o.IsAnySessionActive() {
		t.Fatal("expected session id cleared synchronously by Cancel")
	}
	if overlay.lastCancelID != "sess0003" {
		t.Fatalf("expected Cancelling overlay for sess0003, got %q", overlay.lastCancelID)
	}
	if !manager.cancelled {
		t.Fatal("expected the Recording Manager to be asked to cancel")
	}
	if shortcuts.ended == 0 {
		t.Fatal("expected the cancel shortcut's session to be ended")
	}
	<-settled
}
