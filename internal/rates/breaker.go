package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
)

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenDuration is how long the breaker stays open before probing.
	OpenDuration time.Duration
}

// Breaker stops calling a failing supplier until it has had time to
// recover. Requests made while it is open fail fast with ErrUnavailable.
type Breaker struct {
	inner Supplier
	name  string
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner in a circuit breaker.
func NewBreaker(inner Supplier, s BreakerSettings) *Breaker {
	if s.Name == "" {
		s.Name = "rates"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 3
	}
	if s.OpenDuration <= 0 {
		s.OpenDuration = 30 * time.Second
	}

	maxFailures := s.MaxFailures
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerStateChange(name, from, to)
			logger.Warn("rate supplier breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	breakerStateGauge.WithLabelValues(s.Name).Set(breakerStateValue(gobreaker.StateClosed))

	return &Breaker{inner: inner, name: s.Name, cb: gobreaker.NewCircuitBreaker(st)}
}

// Rates calls the inner supplier through the breaker.
func (b *Breaker) Rates(ctx context.Context, side Side) (map[fx.Currency]fx.Rate, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Rates(ctx, side)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			breakerRejectedTotal.WithLabelValues(b.name).Inc()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return res.(map[fx.Currency]fx.Rate), nil
}

// State reports the breaker state, e.g. for health checks.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
