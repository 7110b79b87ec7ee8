package audio

import "math"

// Result is what the VAD returns for a single frame.
type Result struct {
	// IsSpeech is true when the frame should be kept.
	IsSpeech bool
	// Samples is the (possibly pre-roll-extended) payload to append when
	// IsSpeech is true. It may contain more than one frame's worth of
	// samples when a pre-roll buffer is being flushed on speech onset.
	Samples []float32
}

// VAD gates 30ms frames of 16kHz mono f32 audio into Speech/Noise,
// matching the glossary definition: "a frame-level gate that emits
// Speech/Noise; uses a smoothed policy with pre-roll so that speech onset
// is never clipped."
type VAD interface {
	// Process classifies one frame and returns the gating result.
	Process(frame []float32) Result
	// Reset clears any internal smoothing/pre-roll state. Called by
	// Recorder.Start.
	Reset()
}

// EnergyVAD is a simple RMS-threshold VAD with hangover smoothing and a
// pre-roll ring so the first few frames of real speech — which arrive
// before the energy gate has had time to latch open — are not discarded.
type EnergyVAD struct {
	threshold    float64
	hangoverMax  int
	preRollSize  int
	hangover     int
	speaking     bool
	preRoll      [][]float32
	preRollStart int
	preRollLen   int
}

// NewEnergyVAD creates an EnergyVAD. threshold is the RMS amplitude
// (0..1) above which a frame is considered speech; hangoverFrames keeps
// the gate open for N additional frames after energy drops, smoothing
// over brief pauses mid-word; preRollFrames is how many frames of
// just-preceding audio are replayed once speech is detected.
func NewEnergyVAD(threshold float64, hangoverFrames, preRollFrames int) *EnergyVAD {
	v := &EnergyVAD{
		threshold:   threshold,
		hangoverMax: hangoverFrames,
		preRollSize: preRollFrames,
	}
	v.Reset()
	return v
}

// Reset clears smoothing and pre-roll state.
func (v *EnergyVAD) Reset() {
	v.hangover = 0
	v.speaking = false
	v.preRoll = make([][]float32, v.preRollSize)
	v.preRollStart = 0
	v.preRollLen = 0
}

func (v *EnergyVAD) pushPreRoll(frame []float32) {
	if v.preRollSize == 0 {
		return
	}
	idx := (v.preRollStart + v.preRollLen) % v.preRollSize
	cp := make([]float32, len(frame))
	copy(cp, frame)
	if v.preRollLen < v.preRollSize {
		v.preRoll[idx] = cp
		v.preRollLen++
	} else {
		v.preRoll[idx] = cp
		v.preRollStart = (v.preRollStart + 1) % v.preRollSize
	}
}

func (v *EnergyVAD) drainPreRoll() []float32 {
	if v.preRollLen == 0 {
		return nil
	}
	var out []float32
	for i := 0; i < v.preRollLen; i++ {
		idx := (v.preRollStart + i) % v.preRollSize
		out = append(out, v.preRoll[idx]...)
	}
	v.preRollStart = 0
	v.preRollLen = 0
	return out
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Process implements VAD.
func (v *EnergyVAD) Process(frame []float32) Result {
	loud := rms(frame) >= v.threshold

	if loud {
		onset := !v.speaking
		v.speaking = true
		v.hangover = v.hangoverMax
		if onset {
			preRoll := v.drainPreRoll()
			out := append(preRoll, frame...)
			return Result{IsSpeech: true, Samples: out}
		}
		return Result{IsSpeech: true, Samples: frame}
	}

	if v.speaking {
		if v.hangover > 0 {
			v.hangover--
			return Result{IsSpeech: true, Samples: frame}
		}
		v.speaking = false
	}

	v.pushPreRoll(frame)
	return Result{IsSpeech: false}
}
