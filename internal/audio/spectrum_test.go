package audio

import (
	"math"
	"testing"
)

func TestVisualizerEmitsFixedBucketCount(t *testing.T) {
	var got []float32
	v := NewVisualizer(16000, func(buckets []float32) {
		got = buckets
	})

	samples := make([]float32, visualizerWindowSize)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 16000))
	}
	v.Feed(samples)

	if len(got) != visualizerBuckets {
		t.Fatalf("expected %d buckets, got %d", visualizerBuckets, len(got))
	}
	for _, b := range got {
		if b < 0 || b > 1 {
			t.Errorf("bucket value out of range: %f", b)
		}
	}
}

func TestVisualizerSilenceYieldsLowLevels(t *testing.T) {
	var got []float32
	v := NewVisualizer(16000, func(buckets []float32) { got = buckets })
	v.Feed(make([]float32, visualizerWindowSize))
	for _, b := range got {
		if b > 0.2 {
			t.Errorf("silence should yield low bucket levels, got %f", b)
		}
	}
}

func TestVisualizerResetClearsAccumulation(t *testing.T) {
	calls := 0
	v := NewVisualizer(16000, func([]float32) { calls++ })
	v.Feed(make([]float32, visualizerWindowSize/2))
	v.Reset()
	v.Feed(make([]float32, visualizerWindowSize/2))
	if calls != 0 {
		t.Errorf("expected no emission after reset split the window, got %d calls", calls)
	}
}
