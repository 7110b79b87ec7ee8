// Package tray wires the menu-bar/system-tray icon: a recording-state
// indicator plus a quit item, driven directly by the orchestrator's
// Tray interface (spec §4.C, §7).
package tray

import (
	"encoding/hex"
	"log"

	"github.com/getlantern/systray"
)

// idleIconHex/recordingIconHex are minimal single-pixel PNGs (transparent
// and solid-red respectively) used as a placeholder menu-bar glyph; no
// icon asset ships with the teacher repo to adapt, and an icon image is
// not something a library can supply, so a deliberately tiny hardcoded
// image stands in for real artwork.
const idleIconHex = "89504e470d0a1a0a0000000d4948445200000001000000010806000000" +
	"1f15c4890000000a49444154789c6360000002000100ffff03000006000557bfabd4" +
	"0000000049454e44ae426082"

const recordingIconHex = "89504e470d0a1a0a0000000d49484452000000010000000108020000" +
	"0090774702000000017352474200aece1ce90000000d49444154789c6360f8cf8000" +
	"0003010100187c02980000000049454e44ae426082"

var (
	idleIcon, _      = hex.DecodeString(idleIconHex)
	recordingIcon, _ = hex.DecodeString(recordingIconHex)
)

// Quitter stops the application when "Quit" is chosen from the tray menu.
type Quitter interface {
	Quit()
}

// Tray implements internal/transcribe.Tray (SetRecording/SetIdle) backed
// by getlantern/systray, and forwards its quit menu item to a Quitter.
type Tray struct {
	logger *log.Logger
	quit   Quitter
	ready  chan struct{}
	mQuit  *systray.MenuItem
}

// New builds a Tray. Run must be called once the platform's event loop is
// ready to host the tray goroutine (the original implementation's
// "launch the tray icon after the UI runtime is running" ordering).
func New(quit Quitter, logger *log.Logger) *Tray {
	return &Tray{logger: logger, quit: quit, ready: make(chan struct{})}
}

// Run starts the systray event loop; it blocks until Quit is chosen, so
// callers invoke it from a dedicated goroutine or the platform main loop
// as systray requires.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTemplateIcon(idleIcon, idleIcon)
	systray.SetTooltip("codictate — idle")
	t.mQuit = systray.AddMenuItem("Quit Codictate", "Exit the application")
	close(t.ready)

	go func() {
		for range t.mQuit.ClickedCh {
			if t.logger != nil {
				t.logger.Printf("tray: quit requested")
			}
			systray.Quit()
			if t.quit != nil {
				t.quit.Quit()
			}
			return
		}
	}()
}

// SetRecording implements internal/transcribe.Tray: switch to the
// recording glyph and tooltip.
func (t *Tray) SetRecording() {
	<-t.ready
	systray.SetTemplateIcon(recordingIcon, recordingIcon)
	systray.SetTooltip("codictate — recording")
}

// SetIdle implements internal/transcribe.Tray: switch back to the idle
// glyph and tooltip.
func (t *Tray) SetIdle() {
	<-t.ready
	systray.SetTemplateIcon(idleIcon, idleIcon)
	systray.SetTooltip("codictate — idle")
}
