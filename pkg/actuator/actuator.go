// Package actuator runs platform-mutating calls with bounded retry on rate
// limiting.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAttemptsExhausted wraps the last rate-limit error once MaxAttempts is
// reached.
var ErrAttemptsExhausted = errors.New("rate limit retries exhausted")

// RateLimitError is returned by platform clients when the provider asked the
// caller to slow down. RetryAfter is zero when the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// IsRateLimit reports whether err carries a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	Margin      time.Duration // added to every provider wait hint
	DefaultWait time.Duration // used when the provider gave no hint
}

// DefaultConfig matches the limits the bot runs with in production.
var DefaultConfig = Config{
	MaxAttempts: 3,
	Margin:      5 * time.Second,
	DefaultWait: 60 * time.Second,
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Actuator.
type Option func(*Actuator)

// WithSleep replaces the sleep used between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(a *Actuator) { a.sleep = fn }
}

// WithLogger sets the logger used to report backoffs.
func WithLogger(l *slog.Logger) Option {
	return func(a *Actuator) { a.logger = l }
}

// Actuator performs side-effecting actions, retrying only on rate limits.
type Actuator struct {
	cfg    Config
	sleep  SleepFunc
	logger *slog.Logger
}

// New creates an actuator. Zero fields in cfg take DefaultConfig values;
// a negative Margin means no margin.
func New(cfg Config, opts ...Option) *Actuator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.Margin == 0 {
		cfg.Margin = DefaultConfig.Margin
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if cfg.DefaultWait <= 0 {
		cfg.DefaultWait = DefaultConfig.DefaultWait
	}
	a := &Actuator{
		cfg:    cfg,
		sleep:  sleepContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration.
func (a *Actuator) Config() Config {
	return a.cfg
}

// Perform runs action until it succeeds, fails with a non rate-limit error,
// or MaxAttempts rate-limited attempts have been made. The action is only
// re-invoked after the previous attempt returned a RateLimitError.
func (a *Actuator) Perform(ctx context.Context, action func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := action(ctx)
		if err == nil {
			return nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		lastErr = err
		if attempt == a.cfg.MaxAttempts {
			break
		}

		wait := a.waitFor(rl)
		a.logger.Warn("rate limited, backing off",
			"attempt", attempt,
			"max_attempts", a.cfg.MaxAttempts,
			"wait", wait.String(),
		)
		if err := a.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, a.cfg.MaxAttempts, lastErr)
}

func (a *Actuator) waitFor(rl *RateLimitError) time.Duration {
	wait := rl.RetryAfter
	if wait <= 0 {
		wait = a.cfg.DefaultWait
	}
	return wait + a.cfg.Margin
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
