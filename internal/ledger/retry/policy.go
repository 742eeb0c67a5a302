package retry

import (
	"time"

	"luckysol/internal/txerr"
)

// Decision is what to do after a failed attempt
type Decision struct {
	Retry bool
	Delay time.Duration
	Class txerr.Class
}

// Policy maps (attempt number, error) to the next action. It is pure and does not sleep.
type Policy struct {
	MaxAttempts  int           // Total attempts including the first
	InitialDelay time.Duration // Delay after the first failure
	MaxDelay     time.Duration // Cap on the delay, 0 means uncapped
}

// DefaultPolicy allows 3 attempts starting at one second
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
	}
}

// Next decides the follow-up to a failure of attempt (1-based)
func (p Policy) Next(attempt int, err error) Decision {
	class := txerr.Classify(err)
	d := Decision{Class: class}

	if class != txerr.ClassRecoverable || attempt >= p.MaxAttempts {
		return d
	}

	// insufficient funds at send time is retried once, in case a pending credit lands
	if txerr.ReasonOf(err) == txerr.ReasonInsufficientFunds && attempt > 1 {
		return d
	}

	d.Retry = true
	d.Delay = p.Backoff(attempt)
	return d
}

// Backoff returns InitialDelay x 2^(attempt-1), capped at MaxDelay
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
