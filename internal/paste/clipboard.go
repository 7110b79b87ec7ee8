package paste

import atclip "github.com/atotto/clipboard"

// SystemClipboard adapts github.com/atotto/clipboard to the Clipboard
// interface (the teacher's own clipboard dependency, used the same way
// internal/clipboard/clipboard.go uses it for X11 paste).
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return atclip.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return atclip.WriteAll(text) }
