//go:build !darwin && !linux

package paste

import "fmt"

type otherInjector struct{}

// NewInjector returns a no-op injector on platforms with no keystroke
// injection backend wired (Windows keystroke injection is not in scope).
func NewInjector() Injector { return otherInjector{} }

func (otherInjector) PressCtrlV() error       { return fmt.Errorf("paste: keystroke injection not supported on this platform") }
func (otherInjector) PressShiftInsert() error { return fmt.Errorf("paste: keystroke injection not supported on this platform") }
func (otherInjector) PressCtrlShiftV() error  { return fmt.Errorf("paste: keystroke injection not supported on this platform") }
func (otherInjector) PressUndo() error        { return fmt.Errorf("paste: keystroke injection not supported on this platform") }
func (otherInjector) PressCopy() error        { return fmt.Errorf("paste: keystroke injection not supported on this platform") }
func (otherInjector) TypeDirect(string) error { return fmt.Errorf("paste: direct typing not supported on this platform") }
