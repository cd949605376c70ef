package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// BreakerConfig configures the circuit breaker in front of a publisher
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker open
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// DefaultBreakerConfig returns defaults suited to a local broker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// BreakerPublisher stops calling a failing publisher until it has had time to recover.
// No retries are attempted; a failed event is dropped.
type BreakerPublisher struct {
	next    Publisher
	breaker circuitbreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next with a fortify circuit breaker
func NewBreakerPublisher(next Publisher, cfg BreakerConfig) *BreakerPublisher {
	if cfg.ConsecutiveFailures <= 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BreakerPublisher{
		next: next,
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("event publisher circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		}),
	}
}

// Publish implements Publisher
func (b *BreakerPublisher) Publish(ctx context.Context, event *Event) error {
	_, err := b.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.next.Publish(ctx, event)
	})
	return err
}

var _ Publisher = (*BreakerPublisher)(nil)
