package retry

import (
	"context"
	"fmt"
	"log/slog"

	"luckysol/internal/metrics"
	"luckysol/internal/txerr"
)

// ExponentialBackoffStrategy implements retry with exponential backoff
type ExponentialBackoffStrategy struct {
	policy Policy
	sleep  Sleeper
}

// Option customises an ExponentialBackoffStrategy
type Option func(*ExponentialBackoffStrategy)

// WithSleeper replaces the real delay, used by tests to record delays
func WithSleeper(sleep Sleeper) Option {
	return func(s *ExponentialBackoffStrategy) {
		s.sleep = sleep
	}
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(policy Policy, opts ...Option) *ExponentialBackoffStrategy {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	s := &ExponentialBackoffStrategy{
		policy: policy,
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the operation with exponential backoff retry logic
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	for attempt := 1; ; attempt++ {
		err := operation(ctx, attempt)

		// Success case
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry",
					"attempt", attempt,
					"max_attempts", s.policy.MaxAttempts)
			}
			return nil
		}

		decision := s.policy.Next(attempt, err)
		if !decision.Retry {
			if decision.Class == txerr.ClassRecoverable {
				return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
			}
			slog.Debug("Not retrying",
				"class", decision.Class.String(),
				"attempt", attempt,
				"error", err)
			return err
		}

		reason := txerr.ReasonOf(err)
		metrics.RetriesTotal.WithLabelValues(string(reason)).Inc()

		slog.Warn("Operation failed, retrying with exponential backoff",
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"reason", reason,
			"retry_in_ms", decision.Delay.Milliseconds(),
			"error", err)

		if err := s.sleep(ctx, decision.Delay); err != nil {
			return fmt.Errorf("context cancelled during retry: %w", err)
		}
	}
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}
