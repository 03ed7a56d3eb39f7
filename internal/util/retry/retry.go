package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned by Poll when the condition never held within the attempt budget.
var ErrExhausted = errors.New("attempt budget exhausted")

// Sleeper blocks for d, returning early with ctx.Err() if the context is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the wall-clock Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep returns immediately. Used by tests to run poll loops with zero delay.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Condition is evaluated once per poll attempt. Attempts are numbered from 1.
// A non-nil error stops the loop immediately.
type Condition func(attempt int) (done bool, err error)

// Poll evaluates cond up to attempts times with a constant interval between
// evaluations. It returns nil as soon as cond reports done, the error cond
// returned, or an error wrapping ErrExhausted once the budget is spent.
func Poll(ctx context.Context, attempts int, interval time.Duration, sleep Sleeper, cond Condition) error {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = ContextSleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("poll cancelled before attempt %d: %w", attempt, err)
		}

		done, err := cond(attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt < attempts {
			if err := sleep(ctx, interval); err != nil {
				return fmt.Errorf("poll cancelled after %d attempts: %w", attempt, err)
			}
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
}

// Config holds backoff configuration.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Sleep        Sleeper
}

// Option is a functional option for backoff configuration.
type Option func(*Config)

// WithExponentialBackoff runs operation until it succeeds, returns a Fatal
// error, or MaxRetries retries have been spent.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Sleep:        ContextSleep,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}

		if attempt == cfg.MaxRetries {
			break
		}
		if err := cfg.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt+1, err)
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// WithSleeper replaces the wall-clock sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Config) {
		if s != nil {
			c.Sleep = s
		}
	}
}

// FatalError marks an error as non-retryable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
