package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/txerr"
)

// recordingSleeper captures requested delays without waiting
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestStrategy(maxAttempts int) (*ExponentialBackoffStrategy, *recordingSleeper) {
	rec := &recordingSleeper{}
	s := NewExponentialBackoffStrategy(Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
	}, WithSleeper(rec.sleep))
	return s, rec
}

func TestExponentialBackoffStrategy_Success(t *testing.T) {
	strategy, rec := newTestStrategy(3)

	attempts := 0
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
}

func TestExponentialBackoffStrategy_SuccessAfterRetries(t *testing.T) {
	strategy, rec := newTestStrategy(5)

	var seen []int
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Len(t, rec.delays, 2)
}

func TestExponentialBackoffStrategy_StaleTokenExhaustsBudget(t *testing.T) {
	strategy, rec := newTestStrategy(3)

	attempts := 0
	stale := errors.New("Transaction simulation failed: Blockhash not found")
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return stale
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, stale, "last error is surfaced")
	require.Len(t, rec.delays, 2)
	assert.Less(t, rec.delays[0], rec.delays[1], "delays strictly increase")
}

func TestExponentialBackoffStrategy_NonRecoverableError(t *testing.T) {
	strategy, rec := newTestStrategy(5)

	attempts := 0
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return errors.New("invalid data")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
}

func TestExponentialBackoffStrategy_UserRejectedNotRetried(t *testing.T) {
	strategy, rec := newTestStrategy(3)

	attempts := 0
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return txerr.ErrUserRejected
	})

	assert.ErrorIs(t, err, txerr.ErrUserRejected)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.delays)
}

func TestExponentialBackoffStrategy_AlreadyProcessedStops(t *testing.T) {
	strategy, _ := newTestStrategy(3)

	attempts := 0
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return errors.New("Transaction simulation failed: This transaction has already been processed")
	})

	assert.Equal(t, txerr.ClassAlreadyProcessed, txerr.Classify(err))
	assert.Equal(t, 1, attempts)
}

func TestExponentialBackoffStrategy_ContextCancellation(t *testing.T) {
	strategy, _ := newTestStrategy(5)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := strategy.Execute(ctx, func(ctx context.Context, attempt int) error {
		attempts++
		cancel()
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestPolicy_Next(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		name    string
		attempt int
		err     error
		retry   bool
		delay   time.Duration
	}{
		{"stale token first attempt", 1, txerr.Recoverable(txerr.ReasonStaleToken, nil), true, 100 * time.Millisecond},
		{"timeout second attempt", 2, txerr.Recoverable(txerr.ReasonTimeout, nil), true, 200 * time.Millisecond},
		{"budget exhausted", 3, txerr.Recoverable(txerr.ReasonExpired, nil), false, 0},
		{"insufficient funds once", 1, txerr.Recoverable(txerr.ReasonInsufficientFunds, nil), true, 100 * time.Millisecond},
		{"insufficient funds twice", 2, txerr.Recoverable(txerr.ReasonInsufficientFunds, nil), false, 0},
		{"rejection", 1, txerr.Rejection(txerr.ReasonSoldOut), false, 0},
		{"duplicate", 1, txerr.ErrDuplicateInFlight, false, 0},
		{"fatal", 1, errors.New("permission denied"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Next(tt.attempt, tt.err)
			assert.Equal(t, tt.retry, d.Retry)
			assert.Equal(t, tt.delay, d.Delay)
		})
	}
}

func TestPolicy_BackoffCapped(t *testing.T) {
	p := Policy{MaxAttempts: 10, InitialDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 500*time.Millisecond, p.Backoff(4))
	assert.Equal(t, 500*time.Millisecond, p.Backoff(9))
}

func TestNoRetryStrategy(t *testing.T) {
	strategy := NewNoRetryStrategy()

	attempts := 0
	err := strategy.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return errors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RETRY_ENABLED", "false")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_DELAY_MS", "250")
	t.Setenv("RETRY_MAX_DELAY_MS", "not-a-number")

	cfg := LoadConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 8*time.Second, cfg.MaxDelay)
	assert.Equal(t, "NoRetry", NewStrategy(cfg).Name())
}
