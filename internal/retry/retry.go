package retry

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/chain"
	"github.com/significance/beeport-stamp-stats-sub000/internal/metrics"
)

// Config holds the two-phase backoff parameters.
type Config struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	ExtendedWait      time.Duration
}

// SleepFunc suspends for d or returns early with the context error. Tests
// inject a recording implementation instead of sleeping for real.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs fallible operations under a two-phase backoff policy.
//
// Phase one retries up to MaxRetries times with exponentially growing
// delays. When exhausted, the executor sleeps ExtendedWait once, resets the
// counter, and re-enters phase one. Retryable failures are never terminal:
// callers wanting a hard ceiling wrap the context with a deadline.
// Non-retryable failures propagate on first occurrence.
type Executor struct {
	cfg    Config
	sleep  SleepFunc
	logger *zap.Logger
}

// New builds an Executor. A nil sleep uses a real context-aware timer.
func New(cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.ExtendedWait <= 0 {
		cfg.ExtendedWait = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{cfg: cfg, sleep: sleepWithContext, logger: logger}
}

// WithSleep replaces the sleep implementation. Intended for tests.
func (e *Executor) WithSleep(sleep SleepFunc) *Executor {
	e.sleep = sleep
	return e
}

// Do runs fn, retrying rate-limited failures per the two-phase policy.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	return e.DoWithRetryable(ctx, op, chain.IsRateLimited, fn)
}

// DoWithRetryable is Do with a caller-supplied retryability predicate, for
// operations whose failures retry on something other than rate limiting.
func (e *Executor) DoWithRetryable(ctx context.Context, op string, retryable func(error) bool, fn func(context.Context) error) error {
	state := backoffState{}
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		metrics.RPCRetries.Inc()
		delay, extended := state.next(e.cfg)
		if extended {
			e.logger.Warn("retries exhausted, entering extended wait",
				zap.String("op", op),
				zap.Duration("wait", delay),
				zap.Error(err))
		} else {
			e.logger.Debug("retrying after transient failure",
				zap.String("op", op),
				zap.Int("retry", state.retries),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// backoffState is the retry state machine: FastRetry(retries) transitions
// to ExtendedWait once retries reach MaxRetries, then back to FastRetry(0).
type backoffState struct {
	retries int
}

// next returns the delay before the following attempt and whether that
// delay is the extended wait.
func (s *backoffState) next(cfg Config) (time.Duration, bool) {
	if s.retries >= cfg.MaxRetries {
		s.retries = 0
		return cfg.ExtendedWait, true
	}
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(s.retries)))
	s.retries++
	return delay, false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
