// Package device implements the Device Arbitrator (component B, spec
// §4.B): it resolves *what* input device to open, detects Bluetooth /
// built-in / virtual / continuity-camera transports, and performs the
// Bluetooth HFP prewarm.
package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/aidynamicsolutions/codictate/internal/audio"
)

// Transport is the OS-reported transport of an input device.
type Transport int

const (
	TransportUnknown Transport = iota
	TransportBluetooth
	TransportBuiltIn
	TransportVirtual
	TransportContinuityCamera
)

// bluetoothNamePatterns is the cross-platform name-pattern allowlist used
// where no native transport API is available (§4.B).
var bluetoothNamePatterns = []string{
	"airpods", "beats", "bose", "wh-", "bluetooth", "soundcore", "jbl",
}

// classifyByName applies the substring heuristic fallback.
func classifyByName(name string) Transport {
	lower := strings.ToLower(name)
	for _, pat := range bluetoothNamePatterns {
		if strings.Contains(lower, pat) {
			return TransportBluetooth
		}
	}
	return TransportUnknown
}

// Listing is one enumerated input device plus its resolved transport.
type Listing struct {
	Handle    *audio.DeviceHandle
	Name      string
	Transport Transport
}

// Policy is the AppSettings subset the arbitrator needs (§4.B).
type Policy struct {
	ClamshellClosed     bool
	ClamshellMicrophone string
	SelectedMicrophone  string
}

// Arbitrator resolves the effective input device per the policy in §4.B.
type Arbitrator struct {
	transportOf   func(*portaudio.DeviceInfo) Transport
	listDevices   func() ([]*portaudio.DeviceInfo, error)
	defaultDevice func() (*portaudio.DeviceInfo, error)
}

// New creates an Arbitrator using the platform's best available transport
// detection (native API on Apple platforms, name heuristics elsewhere).
func New() *Arbitrator {
	return &Arbitrator{
		transportOf:   platformTransport,
		listDevices:   portaudio.Devices,
		defaultDevice: portaudio.DefaultInputDevice,
	}
}

// Enumerate lists available input devices, hiding virtual devices (unless
// the caller needs them specifically — Resolve always considers them even
// though the UI listing would hide them) and excluding continuity-camera
// microphones entirely (§4.B).
func (a *Arbitrator) Enumerate(forUI bool) ([]Listing, error) {
	devices, err := a.listDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	var out []Listing
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		t := a.transportOf(d)
		if t == TransportContinuityCamera {
			continue
		}
		if forUI && t == TransportVirtual {
			continue
		}
		out = append(out, Listing{
			Handle:    &audio.DeviceHandle{Info: d},
			Name:      d.Name,
			Transport: t,
		})
	}
	return out, nil
}

// Resolve picks the effective input device per the §4.B policy:
//  1. clamshell mode + clamshell_microphone configured → that device
//  2. selected_microphone configured → that device, by name
//  3. OS default is Bluetooth → search for a BuiltIn device instead; if
//     none found, accept the Bluetooth default
//  4. else → OS default
func (a *Arbitrator) Resolve(p Policy) (*audio.DeviceHandle, Transport, error) {
	listings, err := a.Enumerate(false)
	if err != nil {
		return nil, TransportUnknown, err
	}

	if p.ClamshellClosed && p.ClamshellMicrophone != "" {
		if l, ok := findByName(listings, p.ClamshellMicrophone); ok {
			return l.Handle, l.Transport, nil
		}
	}

	if p.SelectedMicrophone != "" {
		if l, ok := findByName(listings, p.SelectedMicrophone); ok {
			return l.Handle, l.Transport, nil
		}
	}

	def, err := a.defaultDevice()
	if err != nil {
		return nil, TransportUnknown, fmt.Errorf("default input device: %w", err)
	}
	defTransport := a.transportOf(def)
	if defTransport == TransportBluetooth {
		for _, l := range listings {
			if l.Transport == TransportBuiltIn {
				return l.Handle, l.Transport, nil
			}
		}
	}
	return &audio.DeviceHandle{Info: def}, defTransport, nil
}

func findByName(listings []Listing, name string) (Listing, bool) {
	for _, l := range listings {
		if l.Name == name {
			return l, true
		}
	}
	return Listing{}, false
}

// prewarmMinOpen is the minimum time the prewarm stream stays open so the
// Bluetooth A2DP→HFP profile switch has time to land (§4.B).
const prewarmMinOpen = 500 * time.Millisecond

// Prewarm briefly opens and closes a stream on the resolved device if it
// is Bluetooth and not already open, to move the device to its voice
// profile before the user actually records. It is a no-op for non-Bluetooth
// devices.
func Prewarm(rec interface {
	IsOpen() bool
}, open func() error, transport Transport) error {
	if transport != TransportBluetooth {
		return nil
	}
	if rec.IsOpen() {
		return nil
	}
	if err := open(); err != nil {
		return fmt.Errorf("prewarm open: %w", err)
	}
	time.Sleep(prewarmMinOpen)
	if c, ok := rec.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("prewarm close: %w", err)
		}
	}
	return nil
}
