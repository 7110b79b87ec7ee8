//go:build linux

package recording

import (
	"os/exec"
)

type systemMuter struct{}

// newSystemMuter returns the platform muter. Linux has no single
// mixer API, so it tries wpctl (PipeWire), then pactl (PulseAudio), then
// amixer (plain ALSA), in that order, picking the first tool present on
// $PATH (§5 "Mute/unmute shells out on Linux").
func newSystemMuter() Muter { return systemMuter{} }

func (systemMuter) Mute() error   { return runFirstAvailable(muteCommands) }
func (systemMuter) Unmute() error { return runFirstAvailable(unmuteCommands) }

var muteCommands = [][]string{
	{"wpctl", "set-mute", "@DEFAULT_AUDIO_SINK@", "1"},
	{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "1"},
	{"amixer", "set", "Master", "mute"},
}

var unmuteCommands = [][]string{
	{"wpctl", "set-mute", "@DEFAULT_AUDIO_SINK@", "0"},
	{"pactl", "set-sink-mute", "@DEFAULT_SINK@", "0"},
	{"amixer", "set", "Master", "unmute"},
}

func runFirstAvailable(candidates [][]string) error {
	var lastErr error
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err != nil {
			lastErr = err
			continue
		}
		return exec.Command(c[0], c[1:]...).Run()
	}
	return lastErr
}
