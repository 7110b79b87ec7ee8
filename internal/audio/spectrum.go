package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	// visualizerWindowSize is the Hann window length (§4.A).
	visualizerWindowSize = 512
	// visualizerBuckets is the default bucket count (§4.A).
	visualizerBuckets = 16
	// voiceBandLowHz / voiceBandHighHz bound the spectrum shown to the
	// user: the frequencies that matter for a speaking voice.
	voiceBandLowHz  = 400.0
	voiceBandHighHz = 4000.0
)

// LevelCallback receives a fixed-size vector of spectral buckets (0..1)
// every time the visualizer accumulates a full window (§4.A).
type LevelCallback func(buckets []float32)

// Visualizer accumulates 16kHz mono f32 samples into fixed-size windows,
// runs an FFT with a Hann window, and buckets the voice-band magnitude
// into a small number of normalized levels for UI display.
type Visualizer struct {
	sampleRate int
	buckets    int
	window     []float64
	fft        *fourier.FFT
	accum      []float32
	cb         LevelCallback
}

// NewVisualizer creates a Visualizer at sampleRate (expected 16000) calling
// cb with visualizerBuckets values each time a visualizerWindowSize window
// fills.
func NewVisualizer(sampleRate int, cb LevelCallback) *Visualizer {
	return &Visualizer{
		sampleRate: sampleRate,
		buckets:    visualizerBuckets,
		window:     window.Hann(make([]float64, visualizerWindowSize)),
		fft:        fourier.NewFFT(visualizerWindowSize),
		cb:         cb,
	}
}

// Reset clears the accumulation buffer.
func (v *Visualizer) Reset() {
	v.accum = v.accum[:0]
}

// Feed appends samples to the accumulation buffer, emitting a bucket
// vector via the callback each time a full window is available. Feed must
// not block or allocate in a way that could stall the audio callback
// thread on real hardware; it is only ever invoked from the Recorder's
// buffering goroutine, not the device callback itself.
func (v *Visualizer) Feed(samples []float32) {
	if v.cb == nil {
		return
	}
	v.accum = append(v.accum, samples...)
	for len(v.accum) >= visualizerWindowSize {
		v.emit(v.accum[:visualizerWindowSize])
		v.accum = v.accum[visualizerWindowSize:]
	}
}

func (v *Visualizer) emit(frame []float32) {
	windowed := make([]float64, visualizerWindowSize)
	for i, s := range frame {
		windowed[i] = float64(s) * v.window[i]
	}
	coeffs := v.fft.Coefficients(nil, windowed)

	freqPerBin := float64(v.sampleRate) / float64(visualizerWindowSize)
	loBin := int(voiceBandLowHz / freqPerBin)
	hiBin := int(voiceBandHighHz / freqPerBin)
	if hiBin >= len(coeffs) {
		hiBin = len(coeffs) - 1
	}
	if loBin < 0 {
		loBin = 0
	}
	span := hiBin - loBin
	if span <= 0 {
		v.cb(make([]float32, v.buckets))
		return
	}

	buckets := make([]float32, v.buckets)
	binsPerBucket := float64(span) / float64(v.buckets)
	for b := 0; b < v.buckets; b++ {
		start := loBin + int(float64(b)*binsPerBucket)
		end := loBin + int(float64(b+1)*binsPerBucket)
		if end <= start {
			end = start + 1
		}
		if end > hiBin+1 {
			end = hiBin + 1
		}
		var mag float64
		count := 0
		for i := start; i < end && i < len(coeffs); i++ {
			m := cmplxAbs(coeffs[i])
			if m > mag {
				mag = m
			}
			count++
		}
		_ = count
		buckets[b] = float32(normalizeMagnitude(mag))
	}
	v.cb(buckets)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// normalizeMagnitude squashes an FFT magnitude into 0..1 with a log curve,
// since raw magnitude spans many orders of magnitude for speech.
func normalizeMagnitude(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	const refMax = float64(visualizerWindowSize) / 2
	db := 20 * math.Log10(mag/refMax+1e-9)
	const dbFloor = -60.0
	level := (db - dbFloor) / -dbFloor
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return level
}
