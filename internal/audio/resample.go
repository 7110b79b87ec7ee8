// Resampling is ported from the teacher's internal/recorder.Resample,
// adapted to operate on f32 samples (the Recorder's native unit) instead
// of int16, since the pipeline in §4.A works in f32 end to end.
package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts f32 PCM samples from inputRate to outputRate using
// polyphase FIR filtering with a Kaiser window, matching the teacher's
// choice of resampling.QualityLow (16-bit-equivalent precision, suitable
// for speech).
func Resample(samples []float32, inputRate, outputRate float64) ([]float32, error) {
	if inputRate == outputRate || len(samples) == 0 {
		return samples, nil
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s)
	}

	resampled, err := resampling.ResampleMono(floats, inputRate, outputRate, resampling.QualityLow)
	if err != nil {
		return nil, fmt.Errorf("resample mono: %w", err)
	}

	out := make([]float32, len(resampled))
	for i, f := range resampled {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		out[i] = float32(f)
	}
	return out, nil
}

// DownmixToMono collapses interleaved multi-channel f32 samples to mono by
// arithmetic mean across channels (§4.A step 1).
func DownmixToMono(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}
	n := len(interleaved) / channels
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
