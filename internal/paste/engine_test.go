package paste

import (
	"context"
	"testing"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

type fakeInjector struct {
	ctrlV, shiftInsert, ctrlShiftV, undo int
	typed                                []string
}

func (f *fakeInjector) PressCtrlV() error       { f.ctrlV++; return nil }
func (f *fakeInjector) PressShiftInsert() error { f.shiftInsert++; return nil }
func (f *fakeInjector) PressCtrlShiftV() error  { f.ctrlShiftV++; return nil }
func (f *fakeInjector) PressUndo() error        { f.undo++; return nil }
func (f *fakeInjector) PressCopy() error        { return nil }
func (f *fakeInjector) TypeDirect(text string) error {
	f.typed = append(f.typed, text)
	return nil
}

type fakeClipboard struct{ contents string }

func (f *fakeClipboard) ReadAll() (string, error)   { return f.contents, nil }
func (f *fakeClipboard) WriteAll(text string) error { f.contents = text; return nil }

func TestPasteNoneSkipsClipboardAndKeystroke(t *testing.T) {
	injector := &fakeInjector{}
	clipboard := &fakeClipboard{contents: "prior"}
	e := New(injector, clipboard)
	e.sleep = func(time.Duration) {}

	if err := e.Paste(context.Background(), "hello", settings.PasteNone, settings.ClipboardDontModify); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clipboard.contents != "prior" {
		t.Fatalf("expected clipboard untouched, got %q", clipboard.contents)
	}
}

func TestPasteDirectTypesWithoutTouchingClipboard(t *testing.T) {
	injector := &fakeInjector{}
	clipboard := &fakeClipboard{contents: "prior"}
	e := New(injector, clipboard)
	e.sleep = func(time.Duration) {}

	if err := e.Paste(context.Background(), "hello", settings.PasteDirect, settings.ClipboardDontModify); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(injector.typed) != 1 || injector.typed[0] != "hello" {
		t.Fatalf("expected direct typing of hello, got %v", injector.typed)
	}
	if clipboard.contents != "prior" {
		t.Fatalf("expected clipboard untouched, got %q", clipboard.contents)
	}
}

func TestPasteCtrlVRestoresClipboardWhenDontModify(t *testing.T) {
	injector := &fakeInjector{}
	clipboard := &fakeClipboard{contents: "prior clipboard contents"}
	e := New(injector, clipboard)
	var slept time.Duration
	e.sleep = func(d time.Duration) { slept = d }

	if err := e.Paste(context.Background(), "pasted text", settings.PasteCtrlV, settings.ClipboardDontModify); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if injector.ctrlV != 1 {
		t.Fatalf("expected one CtrlV press, got %d", injector.ctrlV)
	}
	if clipboard.contents != "prior clipboard contents" {
		t.Fatalf("expected clipboard restored to prior contents, got %q", clipboard.contents)
	}
	if slept != restoreDelay {
		t.Fatalf("expected a %v restore delay, got %v", restoreDelay, slept)
	}
}

func TestPasteCopyToClipboardSkipsRestore(t *testing.T) {
	injector := &fakeInjector{}
	clipboard := &fakeClipboard{contents: "prior"}
	e := New(injector, clipboard)
	e.sleep = func(time.Duration) {}

	if err := e.Paste(context.Background(), "new text", settings.PasteCtrlV, settings.ClipboardCopyToClipboard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clipboard.contents != "new text" {
		t.Fatalf("expected clipboard to retain the pasted text, got %q", clipboard.contents)
	}
}

func TestPasteShiftInsertAndCtrlShiftVSelectCorrectKeystroke(t *testing.T) {
	injector := &fakeInjector{}
	clipboard := &fakeClipboard{}
	e := New(injector, clipboard)
	e.sleep = func(time.Duration) {}

	_ = e.Paste(context.Background(), "x", settings.PasteShiftInsert, settings.ClipboardCopyToClipboard)
	_ = e.Paste(context.Background(), "x", settings.PasteCtrlShiftV, settings.ClipboardCopyToClipboard)

	if injector.shiftInsert != 1 {
		t.Fatalf("expected one ShiftInsert press, got %d", injector.shiftInsert)
	}
	if injector.ctrlShiftV != 1 {
		t.Fatalf("expected one CtrlShiftV press, got %d", injector.ctrlShiftV)
	}
}
