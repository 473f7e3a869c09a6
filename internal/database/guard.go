package database

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	"github.com/shaibs3/careportal/internal/apperror"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Guard protects database calls with a circuit breaker. Reads are retried
// with backoff, writes are not since they may not be idempotent.
type Guard struct {
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
	attempts uint
	delay    time.Duration
}

type GuardOption func(*Guard)

func WithRetryAttempts(n uint) GuardOption {
	return func(g *Guard) { g.attempts = n }
}

func WithRetryDelay(d time.Duration) GuardOption {
	return func(g *Guard) { g.delay = d }
}

func NewGuard(name string, logger *zap.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		logger:   logger.Named("guard"),
		attempts: 3,
		delay:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// expected outcomes must not open the breaker
			return err == nil || !isBackendFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	g.cb = gobreaker.NewCircuitBreaker(settings)
	return g
}

// Read runs an idempotent operation, retrying backend failures
func (g *Guard) Read(ctx context.Context, op string, fn func() error) error {
	if g == nil {
		return fn()
	}
	return retry.Do(
		func() error { return g.execute(fn) },
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return isBackendFailure(err) && !errors.Is(err, gobreaker.ErrOpenState)
		}),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("retrying database operation",
				zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

// Write runs a mutating operation once through the breaker
func (g *Guard) Write(ctx context.Context, op string, fn func() error) error {
	if g == nil {
		return fn()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := g.execute(fn)
	if err != nil && isBackendFailure(err) {
		g.logger.Error("database write failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (g *Guard) execute(fn func() error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State exposes the breaker state for health reporting
func (g *Guard) State() gobreaker.State {
	if g == nil {
		return gobreaker.StateClosed
	}
	return g.cb.State()
}

func isBackendFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		IsDuplicateKey(err),
		apperror.IsDomain(err):
		return false
	}
	return true
}
