// Package audio implements the Audio Recorder (component A, spec §4.A):
// a single input stream resampled to 16kHz mono, gated through an optional
// VAD, feeding a spectral visualizer, yielding f32 samples on Stop.
//
// The stream lifecycle (OpenDefaultStream, a read-loop goroutine signaled
// by a done channel, stop-before-close ordering to avoid a callback racing
// stream.Close) is ported directly from the teacher's internal/recorder
// package; what's new is the VAD gate, the resampler running inline per
// chunk instead of once at Stop, and the visualizer hook.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	// targetSampleRate is the model's required input rate (§4.A).
	targetSampleRate = 16000
	// openTimeout is how long Open waits for the first audio packet
	// before failing, forcing failover for Bluetooth devices that
	// silently refuse HFP (§4.A).
	openTimeout = 3 * time.Second
	// frameDurationMs is the VAD/resampler frame size (§4.A).
	frameDurationMs = 30
)

// Recorder owns a single capture stream end to end.
type Recorder struct {
	mu sync.Mutex

	cfg    *StreamConfig
	stream *portaudio.Stream

	vad        VAD
	visualizer *Visualizer

	recording bool
	done      chan struct{}
	loopDone  chan struct{}

	outBuf  []float32
	pending []float32

	firstPacket chan struct{}
}

// Option configures a Recorder at construction time (§4.A).
type Option func(*Recorder)

// WithVAD sets the VAD gate used during Start/Stop. Without one, all
// frames are treated as speech.
func WithVAD(v VAD) Option {
	return func(r *Recorder) { r.vad = v }
}

// WithLevelCallback sets the spectrum visualizer callback (§4.A).
func WithLevelCallback(cb LevelCallback) Option {
	return func(r *Recorder) {
		r.visualizer = NewVisualizer(targetSampleRate, cb)
	}
}

// New constructs a Recorder. It does not open a stream — call Open for
// that — so a Recorder can be constructed during warmup (loading the VAD
// model) without lighting the mic indicator (§4.C warmup_recorder).
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open establishes a stream on the given device (nil = OS default) at the
// device's default sample rate (16kHz if it reports none) with one or two
// channels, capturing float32 samples that readLoop resamples to 16kHz.
// No sample-format or sample-rate negotiation takes place: the stream is
// always float32 at the device default rate. It blocks until the first
// audio packet arrives or openTimeout elapses.
func (r *Recorder) Open(ctx context.Context, device *DeviceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return nil // idempotent: already open
	}

	var devInfo *portaudio.DeviceInfo
	var err error
	if device != nil && device.Info != nil {
		devInfo = device.Info
	} else {
		devInfo, err = portaudio.DefaultInputDevice()
		if err != nil {
			return fmt.Errorf("default input device: %w", err)
		}
	}

	channels := devInfo.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		channels = 1
	}

	sampleRate := devInfo.DefaultSampleRate
	if sampleRate <= 0 {
		sampleRate = targetSampleRate
	}
	framesPerBuffer := int(sampleRate * frameDurationMs / 1000)
	if framesPerBuffer <= 0 {
		framesPerBuffer = 480
	}

	inputBuf := make([]float32, framesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   devInfo,
			Channels: channels,
			Latency:  devInfo.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, &inputBuf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}

	r.cfg = &StreamConfig{
		Device:          device,
		SampleRate:      sampleRate,
		Channels:        channels,
		Format:          FormatF32,
		FramesPerBuffer: framesPerBuffer,
	}
	r.stream = stream
	r.firstPacket = make(chan struct{})

	readyCh := r.firstPacket
	errCh := make(chan error, 1)
	go r.readLoop(stream, inputBuf, channels, sampleRate, errCh)

	select {
	case <-readyCh:
		return nil
	case err := <-errCh:
		stream.Stop()
		stream.Close()
		r.stream = nil
		return fmt.Errorf("stream produced no data: %w", err)
	case <-time.After(openTimeout):
		stream.Stop()
		stream.Close()
		r.stream = nil
		return fmt.Errorf("device produced no audio within %s (likely a Bluetooth HFP handoff failure)", openTimeout)
	case <-ctx.Done():
		stream.Stop()
		stream.Close()
		r.stream = nil
		return ctx.Err()
	}
}

// Start begins accepting frames, resetting VAD state, the visualizer, and
// the output buffer. The warmup counter is always 0 frames: the VAD's own
// pre-roll is responsible for capturing speech onset (§4.A).
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return fmt.Errorf("recorder not open")
	}
	r.outBuf = nil
	if r.vad != nil {
		r.vad.Reset()
	}
	if r.visualizer != nil {
		r.visualizer.Reset()
	}
	r.recording = true
	return nil
}

// frameSamples is how many samples make up one 30ms/16kHz frame.
const frameSamples = targetSampleRate * frameDurationMs / 1000

func (r *Recorder) readLoop(stream *portaudio.Stream, inputBuf []float32, channels int, nativeRate float64, errCh chan error) {
	r.done = make(chan struct{})
	r.loopDone = make(chan struct{})
	done := r.done
	loopDone := r.loopDone
	defer close(loopDone)

	firstPacketClosed := false

	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			return
		}

		mono := DownmixToMono(inputBuf, channels)
		resampled, err := Resample(mono, nativeRate, targetSampleRate)
		if err != nil {
			continue
		}

		if !firstPacketClosed {
			firstPacketClosed = true
			close(r.firstPacket)
		}

		r.mu.Lock()
		recording := r.recording
		r.mu.Unlock()
		if !recording {
			continue
		}

		r.mu.Lock()
		r.pending = append(r.pending, resampled...)
		var frames [][]float32
		for len(r.pending) >= frameSamples {
			frames = append(frames, append([]float32(nil), r.pending[:frameSamples]...))
			r.pending = r.pending[frameSamples:]
		}
		r.mu.Unlock()
		for _, frame := range frames {
			r.consumeFrame(frame)
		}
	}
}

func (r *Recorder) consumeFrame(frame []float32) {
	if r.visualizer != nil {
		r.visualizer.Feed(frame)
	}

	if r.vad == nil {
		r.mu.Lock()
		r.outBuf = append(r.outBuf, frame...)
		r.mu.Unlock()
		return
	}

	res := r.vad.Process(frame)
	if res.IsSpeech {
		r.mu.Lock()
		r.outBuf = append(r.outBuf, res.Samples...)
		r.mu.Unlock()
	}
}

// Stop flushes remaining resampler/VAD state — treating the tail as
// speech regardless of the VAD's verdict, to avoid truncating the last
// word (§4.A step 4) — and returns the accumulated f32 buffer.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	r.recording = false
	done := r.done
	loopDone := r.loopDone
	r.mu.Unlock()

	if done != nil {
		close(done)
	}
	if loopDone != nil {
		<-loopDone
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) > 0 {
		r.outBuf = append(r.outBuf, r.pending...)
		r.pending = nil
	}
	out := make([]float32, len(r.outBuf))
	copy(out, r.outBuf)
	r.outBuf = nil
	return out
}

// Close tears down the stream and invalidates the cached config.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return nil
	}
	err := r.stream.Stop()
	closeErr := r.stream.Close()
	r.stream = nil
	r.cfg = nil
	if err != nil {
		return err
	}
	return closeErr
}

// ResetCache invalidates the negotiated stream config so the next Open
// re-probes the device (§4.A, called by update_selected_device in §4.C).
func (r *Recorder) ResetCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = nil
}

// IsOpen reports whether a stream is currently open.
func (r *Recorder) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}
