//go:build !darwin

package device

import (
	"strings"

	"github.com/gordonklaus/portaudio"
)

// virtualNamePatterns catches common virtual/loopback device names on
// platforms without a native transport API.
var virtualNamePatterns = []string{
	"blackhole", "loopback", "monitor of", "virtual", "soundflower", "vb-audio",
}

// platformTransport has no native transport query outside Apple platforms
// (ALSA/PulseAudio expose no portable transport property through
// PortAudio), so it falls back entirely to the name-pattern heuristic
// (§4.B Design Notes: "Linux: reduced capability, documented").
func platformTransport(info *portaudio.DeviceInfo) Transport {
	lower := strings.ToLower(info.Name)
	for _, pat := range virtualNamePatterns {
		if strings.Contains(lower, pat) {
			return TransportVirtual
		}
	}
	return classifyByName(info.Name)
}
