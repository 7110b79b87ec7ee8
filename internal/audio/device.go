package audio

import "github.com/gordonklaus/portaudio"

// DeviceHandle identifies a capture device resolved by the Device
// Arbitrator (component B). It wraps the portaudio device info the
// Recorder needs to open a stream.
type DeviceHandle struct {
	Info *portaudio.DeviceInfo
}

// Name returns the device's display name, or "" for a nil handle (meaning
// "use the OS default").
func (d *DeviceHandle) Name() string {
	if d == nil || d.Info == nil {
		return ""
	}
	return d.Info.Name
}

// SampleFormat is the negotiated sample format for a capture stream,
// preference order F32 > I16 > I32 > other (§4.A).
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatI16
	FormatI32
	FormatOther
)

// StreamConfig is the cached, negotiated configuration for a capture
// stream. Recorder.Open caches this until ResetCache or Close.
type StreamConfig struct {
	Device          *DeviceHandle
	SampleRate      float64
	Channels        int
	Format          SampleFormat
	FramesPerBuffer int
}
