package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/starford/haven/internal/apperr"
)

// BreakerConfig tunes the circuit breaker placed in front of remote backends.
type BreakerConfig struct {
	MaxRequests         uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state counter reset period
	Timeout             time.Duration // open-state duration before probing
	ConsecutiveFailures uint32        // failures that trip the breaker
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// Breaker wraps a Backend so that a failing remote is not hammered on every
// mutation. An unset slot is a normal answer and does not count as a failure.
type Breaker struct {
	Backend
	cb *gobreaker.CircuitBreaker
}

// WithBreaker wraps b in a circuit breaker.
func WithBreaker(b Backend, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "storage-" + string(b.Driver()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperr.ErrNotFound)
		},
	})
	return &Breaker{Backend: b, cb: cb}
}

// Get implements Backend.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.Backend.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	data, _ := res.([]byte)
	return data, nil
}

// Put implements Backend.
func (b *Breaker) Put(ctx context.Context, key string, payload []byte) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.Backend.Put(ctx, key, payload)
	})
	return err
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }
