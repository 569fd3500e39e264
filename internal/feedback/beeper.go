package feedback

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	signalsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calculator",
		Subsystem: "feedback",
		Name:      "played_total",
		Help:      "Feedback tones handed to the player.",
	})
	signalsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calculator",
		Subsystem: "feedback",
		Name:      "dropped_total",
		Help:      "Feedback signals dropped because the queue was full or closed.",
	})
)

// DefaultQueueSize is the number of signals buffered before new ones drop.
const DefaultQueueSize = 16

// Beeper turns key event signals into played tones on a background worker.
// Signal never blocks.
type Beeper struct {
	player  Player
	logger  *zap.Logger
	rate    int
	samples []float32

	mu     sync.RWMutex
	closed bool
	queue  chan struct{}
	done   chan struct{}
}

// BeeperOption configures a Beeper.
type BeeperOption func(*Beeper)

// WithTone renders tone instead of Click.
func WithTone(tone Tone) BeeperOption {
	return func(b *Beeper) { b.samples = tone.Samples(b.rate) }
}

// WithQueueSize sets the signal buffer size.
func WithQueueSize(n int) BeeperOption {
	return func(b *Beeper) {
		if n > 0 {
			b.queue = make(chan struct{}, n)
		}
	}
}

// NewBeeper starts a beeper playing through player.
func NewBeeper(player Player, logger *zap.Logger, opts ...BeeperOption) *Beeper {
	b := &Beeper{
		player:  player,
		logger:  logger,
		rate:    DefaultSampleRate,
		samples: Click.Samples(DefaultSampleRate),
		queue:   make(chan struct{}, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// Signal queues one tone. It drops the signal when the queue is full or the
// beeper is closed.
func (b *Beeper) Signal() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		signalsDropped.Inc()
		return
	}

	select {
	case b.queue <- struct{}{}:
	default:
		signalsDropped.Inc()
	}
}

// Close stops accepting signals and waits for queued tones to finish or ctx
// to end.
func (b *Beeper) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Beeper) run() {
	defer close(b.done)

	for range b.queue {
		if err := b.player.Play(b.samples, b.rate); err != nil {
			b.logger.Debug("feedback tone failed", zap.Error(err))
			continue
		}
		signalsPlayed.Inc()
	}
}
