package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns a default retry configuration with 1 minute max timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second, // 1 minute max
	}
}

// DoWithLog executes the function with exponential backoff and logs each failed attempt
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", serviceName, attempt-1, ctx.Err(), lastErr)
			}
			return fmt.Errorf("%s: retry aborted: %w", serviceName, ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", serviceName, cfg.MaxAttempts, lastErr)
		}

		if logFn != nil {
			logFn(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", serviceName, attempt, ctx.Err(), lastErr)
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s: max retry attempts exceeded: %w", serviceName, lastErr)
}

// Schedule is a backoff table. Entry i is the wait before retry i+1; the last entry repeats.
type Schedule []time.Duration

// Delay returns the wait before the given retry (1-based).
func (s Schedule) Delay(retry int) time.Duration {
	if len(s) == 0 || retry < 1 {
		return 0
	}
	if retry > len(s) {
		return s[len(s)-1]
	}
	return s[retry-1]
}

// Rule retries errors accepted by Match using its own backoff schedule.
type Rule struct {
	Name     string
	Match    func(error) bool
	Schedule Schedule
}

// Policy is a bounded retry loop: at most MaxRetries extra attempts, shared by all rules.
// Errors no rule matches are returned immediately.
type Policy struct {
	MaxRetries int
	Rules      []Rule
}

// RetryFunc is notified before each wait with the failed attempt number (1-based).
type RetryFunc func(rule string, attempt int, err error, delay time.Duration)

// Do runs fn until it succeeds, fails with an unmatched error, or retries are exhausted.
// The error of the final attempt is returned unwrapped so callers can inspect it directly.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, onRetry RetryFunc) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retries := attempt - 1
		rule, ok := p.match(err)
		if !ok || retries >= p.MaxRetries {
			return err
		}

		delay := rule.Schedule.Delay(retries + 1)
		if onRetry != nil {
			onRetry(rule.Name, attempt, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (p Policy) match(err error) (Rule, bool) {
	for _, rule := range p.Rules {
		if rule.Match != nil && rule.Match(err) {
			return rule, true
		}
	}
	return Rule{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
