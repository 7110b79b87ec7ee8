package dispatch

import "testing"

func TestEqualIgnoresOrderAndCase(t *testing.T) {
	if !Equal("Control+Shift+S", "shift+control+s") {
		t.Fatal("expected modifier-order- and case-insensitive equality")
	}
	if Equal("control+s", "control+d") {
		t.Fatal("expected different keys to compare unequal")
	}
}

func TestIsReservedPerPlatform(t *testing.T) {
	if !isReservedFor("darwin", "Meta+Space") {
		t.Error("expected Meta+Space reserved on darwin")
	}
	if isReservedFor("darwin", "Control+Shift+S") {
		t.Error("expected Control+Shift+S not reserved on darwin")
	}
	if !isReservedFor("linux", "Alt+Tab") {
		t.Error("expected Alt+Tab reserved on linux")
	}
	if !isReservedFor("windows", "Super+L") {
		t.Error("expected Super+L reserved on windows")
	}
}

func TestIsFn(t *testing.T) {
	cases := map[string]bool{
		"fn": true, "Fn+Space": true, "FN": true,
		"control+f": false, "": false,
	}
	for shortcut, want := range cases {
		if got := IsFn(shortcut); got != want {
			t.Errorf("IsFn(%q) = %v, want %v", shortcut, got, want)
		}
	}
}

func baseBindings() map[string]Binding {
	return map[string]Binding{
		BindingTranscribe:          {ID: BindingTranscribe, Current: "fn", Default: "fn"},
		BindingTranscribeHandsFree: {ID: BindingTranscribeHandsFree, Current: "fn+space", Default: "fn+space"},
		BindingCancel:              {ID: BindingCancel, Current: "escape", Default: "escape"},
		"undo":                     {ID: "undo", Current: "control+z", Default: "control+z"},
	}
}

func TestChangeBindingRejectsReservedShortcut(t *testing.T) {
	r := NewRegistry(baseBindings())
	if err := r.ChangeBinding("undo", "alt+tab"); err == nil {
		t.Fatal("expected reserved shortcut to be rejected")
	}
}

func TestChangeBindingRejectsDuplicate(t *testing.T) {
	r := NewRegistry(baseBindings())
	if err := r.ChangeBinding("undo", "Escape"); err == nil {
		t.Fatal("expected duplicate-of-cancel shortcut to be rejected")
	}
}

func TestChangeBindingAcceptsValidShortcut(t *testing.T) {
	r := NewRegistry(baseBindings())
	if err := r.ChangeBinding("undo", "control+shift+z"); err != nil {
		t.Fatalf("expected valid shortcut to be accepted: %v", err)
	}
	b, _ := r.Get("undo")
	if b.Current != "control+shift+z" {
		t.Fatalf("expected binding updated, got %q", b.Current)
	}
}

func TestResetBindingRestoresDefault(t *testing.T) {
	r := NewRegistry(baseBindings())
	r.ChangeBinding("undo", "control+shift+z")
	if err := r.ResetBinding("undo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := r.Get("undo")
	if b.Current != b.Default {
		t.Fatalf("expected reset to restore default, got %q", b.Current)
	}
}

// --- Dispatcher arbitration ---

type recordingHandler struct {
	started, stopped []string
}

func (h *recordingHandler) Start(source, bindingID, shortcut string) {
	h.started = append(h.started, bindingID)
}
func (h *recordingHandler) Stop(source, bindingID, shortcut string) {
	h.stopped = append(h.stopped, bindingID)
}

func TestPTTStartStop(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, NewRegistry(baseBindings()), nil)

	d.press("fn", BindingTranscribe)
	d.press("fn", BindingTranscribe) // duplicate press while held, ignored
	d.release("fn", BindingTranscribe)

	if len(h.started) != 1 || len(h.stopped) != 1 {
		t.Fatalf("expected exactly one start/stop, got %d/%d", len(h.started), len(h.stopped))
	}
}

func TestToggleIgnoresRelease(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, NewRegistry(baseBindings()), nil)

	d.press("fn_space", BindingTranscribeHandsFree)
	d.release("fn_space", BindingTranscribeHandsFree) // no-op
	if len(h.started) != 1 || len(h.stopped) != 0 {
		t.Fatalf("expected one start and no stop, got %d/%d", len(h.started), len(h.stopped))
	}

	d.press("fn_space", BindingTranscribeHandsFree) // flips off
	if len(h.stopped) != 1 {
		t.Fatalf("expected toggle-off to stop, got %d stops", len(h.stopped))
	}
}

func TestStartingPTTResetsHandsFreeToggle(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, NewRegistry(baseBindings()), nil)

	d.press("fn_space", BindingTranscribeHandsFree)
	d.press("fn", BindingTranscribe)

	d.mu.Lock()
	handsFreeActive := d.activeToggles[BindingTranscribeHandsFree]
	d.mu.Unlock()
	if handsFreeActive {
		t.Fatal("expected starting PTT to reset the hands-free toggle to false")
	}
}
