package audio

import "testing"

func frameOf(amplitude float32, n int) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = amplitude
	}
	return f
}

func TestEnergyVADGatesNoise(t *testing.T) {
	v := NewEnergyVAD(0.1, 3, 2)
	res := v.Process(frameOf(0.01, 480))
	if res.IsSpeech {
		t.Error("quiet frame should be gated as noise")
	}
}

func TestEnergyVADOnsetIncludesPreRoll(t *testing.T) {
	v := NewEnergyVAD(0.1, 3, 2)

	// Two quiet frames fill the pre-roll buffer.
	v.Process(frameOf(0.01, 10))
	v.Process(frameOf(0.01, 10))

	// Loud frame triggers onset; pre-roll should be prepended.
	res := v.Process(frameOf(0.5, 10))
	if !res.IsSpeech {
		t.Fatal("loud frame should be speech")
	}
	if len(res.Samples) != 30 {
		t.Errorf("expected pre-roll (20) + frame (10) = 30 samples, got %d", len(res.Samples))
	}
}

func TestEnergyVADHangoverSmoothsBriefPause(t *testing.T) {
	v := NewEnergyVAD(0.1, 2, 0)
	v.Process(frameOf(0.5, 10)) // speech onset
	r1 := v.Process(frameOf(0.01, 10))
	r2 := v.Process(frameOf(0.01, 10))
	if !r1.IsSpeech || !r2.IsSpeech {
		t.Error("hangover frames should still be classified as speech")
	}
	r3 := v.Process(frameOf(0.01, 10))
	if r3.IsSpeech {
		t.Error("hangover should expire after hangoverMax frames of quiet")
	}
}

func TestEnergyVADReset(t *testing.T) {
	v := NewEnergyVAD(0.1, 3, 2)
	v.Process(frameOf(0.5, 10))
	v.Reset()
	res := v.Process(frameOf(0.01, 10))
	if res.IsSpeech {
		t.Error("reset should clear speaking state")
	}
}
