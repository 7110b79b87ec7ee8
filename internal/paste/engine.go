// Package paste implements the Paste Engine (spec §4.G): paste-method
// selection, raw-keycode keystroke injection, and the clipboard
// snapshot/restore policy around a paste.
package paste

import (
	"context"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

// Injector presses the platform keystroke for a paste method, or types
// text directly. All presses are by raw virtual/X/evdev keycode so they
// are independent of the active keyboard layout (spec §4.G).
type Injector interface {
	PressCtrlV() error
	PressShiftInsert() error
	PressCtrlShiftV() error
	TypeDirect(text string) error
	PressUndo() error
	// PressCopy presses the platform copy keystroke (Cmd+C / Ctrl+C),
	// used by the Correction Pipeline's clipboard fallback (spec §4.H
	// step 3) when no richer selection source is available.
	PressCopy() error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Engine selects a paste strategy per settings.PasteMethod and carries out
// the clipboard snapshot/restore policy around it.
type Engine struct {
	injector  Injector
	clipboard Clipboard
	sleep     func(time.Duration)
}

// New builds an Engine over injector and clipboard.
func New(injector Injector, clipboard Clipboard) *Engine {
	return &Engine{injector: injector, clipboard: clipboard, sleep: time.Sleep}
}

const restoreDelay = 300 * time.Millisecond

// Paste writes text to the clipboard (methods other than Direct/None
// require it) and injects the configured keystroke, honoring the
// clipboard-handling policy: DontModify snapshots the prior clipboard
// contents and restores them after a 300ms settle; CopyToClipboard leaves
// the pasted text on the clipboard.
func (e *Engine) Paste(_ context.Context, text string, method settings.PasteMethod, handling settings.ClipboardHandling) error {
	if method == settings.PasteNone {
		return nil
	}
	if method == settings.PasteDirect {
		return e.injector.TypeDirect(text)
	}

	var snapshot string
	var hadSnapshot bool
	if handling == settings.ClipboardDontModify {
		if prev, err := e.clipboard.ReadAll(); err == nil {
			snapshot, hadSnapshot = prev, true
		}
	}

	if err := e.clipboard.WriteAll(text); err != nil {
		return err
	}

	var err error
	switch method {
	case settings.PasteCtrlV:
		err = e.injector.PressCtrlV()
	case settings.PasteShiftInsert:
		err = e.injector.PressShiftInsert()
	case settings.PasteCtrlShiftV:
		err = e.injector.PressCtrlShiftV()
	}

	if handling == settings.ClipboardDontModify && hadSnapshot {
		e.sleep(restoreDelay)
		_ = e.clipboard.WriteAll(snapshot)
	}

	return err
}
