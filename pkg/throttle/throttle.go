// Package throttle serializes and paces every call to the external model
// services. One Gate is built at startup and shared by all call sites.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrOpen is returned without calling the service while the breaker is open.
var ErrOpen = gobreaker.ErrOpenState

type GateConfig struct {
	Name          string
	RatePerSecond float64 // calls per second, negative disables pacing
	Burst         int
	MaxFailures   uint32 // consecutive failures before the breaker opens
	OpenTimeout   time.Duration
	OnCall        func(name string, elapsed time.Duration, err error)
	Logger        *zap.Logger
}

// Gate allows one outstanding call at a time, spaces calls with a token
// bucket and stops calling a service that keeps failing.
type Gate struct {
	config  GateConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewWithConfig(config GateConfig) *Gate {
	if config.Name == "" {
		config.Name = "ai"
	}
	if config.RatePerSecond == 0 {
		config.RatePerSecond = 0.5 // one call every 2 seconds
	}
	if config.Burst == 0 {
		config.Burst = 1
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	limit := rate.Limit(config.RatePerSecond)
	if config.RatePerSecond < 0 {
		limit = rate.Inf
	}

	logger := config.Logger.With(zap.String("component", "throttle"))
	maxFailures := config.MaxFailures

	return &Gate{
		config:  config,
		sem:     semaphore.NewWeighted(1),
		limiter: rate.NewLimiter(limit, config.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    config.Name,
			Timeout: config.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		logger: logger,
	}
}

// Do runs fn once the gate is free and the bucket has a token. name labels
// the call site in logs and metrics.
func (g *Gate) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire gate for %s: %w", name, err)
	}
	defer g.sem.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", name, err)
	}

	start := time.Now()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	elapsed := time.Since(start)

	if g.config.OnCall != nil {
		g.config.OnCall(name, elapsed, err)
	}
	g.logger.Debug("call finished",
		zap.String("call", name),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))

	return err
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, g *Gate, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// State reports the breaker state ("closed", "half-open" or "open").
func (g *Gate) State() string {
	return g.breaker.State().String()
}
