package correction

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Copier presses the platform copy keystroke (Cmd+C / Ctrl+C).
type Copier interface {
	PressCopy() error
}

// Paster presses the platform paste keystroke (Cmd+V / Ctrl+V).
type Paster interface {
	PressCtrlV() error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

const clipboardSettle = 150 * time.Millisecond

// ClipboardAccessibility implements ContextReader and TextReplacer using
// only keystroke injection and the clipboard (spec §4.H step 3's
// documented fallback path: "simulating Cmd+C and reading the clipboard,
// restoring the original clipboard"). It backs NewContextReader on every
// platform without an AXUIElement/AT-SPI binding, so CapturedContext.Context
// is always empty and CursorScreenPosition is always the origin there — the
// pipeline runs in selection-only mode rather than darwin's full
// surrounding-sentence mode.
type ClipboardAccessibility struct {
	copier    Copier
	paster    Paster
	clipboard Clipboard
	sleep     func(time.Duration)
}

// NewClipboardAccessibility builds a ClipboardAccessibility over the given
// keystroke injector and clipboard.
func NewClipboardAccessibility(copier Copier, paster Paster, clipboard Clipboard) *ClipboardAccessibility {
	return &ClipboardAccessibility{copier: copier, paster: paster, clipboard: clipboard, sleep: time.Sleep}
}

// CaptureContext simulates Cmd+C, reads the clipboard, and restores its
// prior contents, reporting the copied text as the selection.
func (c *ClipboardAccessibility) CaptureContext(ctx context.Context) (*CapturedContext, error) {
	prior, _ := c.clipboard.ReadAll()

	if err := c.copier.PressCopy(); err != nil {
		return nil, fmt.Errorf("press copy: %w", err)
	}
	c.sleep(clipboardSettle)

	selected, err := c.clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	_ = c.clipboard.WriteAll(prior)

	selected = strings.TrimSpace(selected)
	return &CapturedContext{
		SelectedText: selected,
		HasSelection: selected != "",
	}, nil
}

// ReplaceText pastes replacement over the still-active selection
// (original is unused: this backend has no way to re-select text it
// cannot locate without accessibility APIs, so it relies on the
// selection still being live from CaptureContext).
func (c *ClipboardAccessibility) ReplaceText(ctx context.Context, original, replacement string) error {
	prior, _ := c.clipboard.ReadAll()

	if err := c.clipboard.WriteAll(replacement); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := c.paster.PressCtrlV(); err != nil {
		return fmt.Errorf("press paste: %w", err)
	}
	c.sleep(clipboardSettle)
	_ = c.clipboard.WriteAll(prior)
	return nil
}
