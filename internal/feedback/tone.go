package feedback

import (
	"math"
	"time"
)

// DefaultSampleRate is the rate used when none is configured.
const DefaultSampleRate = 44100

// Tone is a sine wave whose gain ramps exponentially from StartGain to
// EndGain over Duration.
type Tone struct {
	Frequency float64 // Hz
	Duration  time.Duration
	StartGain float64
	EndGain   float64
}

// Click is the key press tone: 800 Hz for 100 ms, gain 0.1 down to 0.01.
var Click = Tone{
	Frequency: 800,
	Duration:  100 * time.Millisecond,
	StartGain: 0.1,
	EndGain:   0.01,
}

// Samples renders the tone as mono PCM in [-1, 1] at sampleRate.
func (t Tone) Samples(sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	n := int(t.Duration.Seconds() * float64(sampleRate))
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	for i := range out {
		at := float64(i) / float64(sampleRate)
		out[i] = float32(t.gainAt(float64(i)/float64(n)) * math.Sin(2*math.Pi*t.Frequency*at))
	}
	return out
}

// gainAt returns the envelope at progress p in [0, 1]. Exponential ramps need
// strictly positive endpoints; otherwise the ramp is linear.
func (t Tone) gainAt(p float64) float64 {
	if t.StartGain <= 0 || t.EndGain <= 0 {
		return t.StartGain + (t.EndGain-t.StartGain)*p
	}
	return t.StartGain * math.Pow(t.EndGain/t.StartGain, p)
}
