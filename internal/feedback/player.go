package feedback

import (
	"time"

	"go.uber.org/zap"
)

// Player outputs rendered PCM. Implementations may block; the Beeper calls
// them from its own goroutine.
type Player interface {
	Play(samples []float32, sampleRate int) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(samples []float32, sampleRate int) error

func (f PlayerFunc) Play(samples []float32, sampleRate int) error {
	return f(samples, sampleRate)
}

// LogPlayer is the headless player: it logs each buffer at debug level.
type LogPlayer struct {
	Logger *zap.Logger
}

func (p LogPlayer) Play(samples []float32, sampleRate int) error {
	var peak float32
	for _, s := range samples {
		peak = max(peak, s, -s)
	}

	p.Logger.Debug("feedback tone played",
		zap.Int("samples", len(samples)),
		zap.Int("sample_rate", sampleRate),
		zap.Float32("peak", peak),
		zap.Duration("duration", time.Duration(len(samples))*time.Second/time.Duration(max(sampleRate, 1))),
	)
	return nil
}
