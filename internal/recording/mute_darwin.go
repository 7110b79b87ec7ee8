//go:build darwin

package recording

import "os/exec"

type systemMuter struct{}

// newSystemMuter returns the platform muter, grounded on the teacher's
// osascript shell-out pattern (internal/clipboard/clipboard_darwin.go).
func newSystemMuter() Muter { return systemMuter{} }

func (systemMuter) Mute() error {
	return exec.Command("osascript", "-e", "set volume with output muted").Run()
}

func (systemMuter) Unmute() error {
	return exec.Command("osascript", "-e", "set volume without output muted").Run()
}
