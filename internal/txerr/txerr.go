// Package txerr defines the failure taxonomy of ledger submissions and maps raw
// RPC and program errors onto it.
package txerr

import (
	"errors"
	"fmt"
)

// Terminal outcomes that are not ledger rejections
var (
	ErrDuplicateInFlight = errors.New("duplicate submission in flight")
	ErrAlreadyProcessed  = errors.New("transaction already processed")
	ErrUserRejected      = errors.New("signing rejected by user")
)

// Reason names why a recoverable attempt failed
type Reason string

const (
	ReasonStaleToken        Reason = "stale_token"
	ReasonExpired           Reason = "expired"
	ReasonTimeout           Reason = "timeout"
	ReasonTransient         Reason = "transient"
	ReasonInsufficientFunds Reason = "insufficient_funds"
)

// RecoverableError is a failure worth another attempt with a fresh liveness token
type RecoverableError struct {
	Reason Reason
	Err    error
}

func (e *RecoverableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recoverable %s", e.Reason)
	}
	return fmt.Sprintf("recoverable %s: %v", e.Reason, e.Err)
}

func (e *RecoverableError) Unwrap() error { return e.Err }

// Recoverable wraps err with reason
func Recoverable(reason Reason, err error) *RecoverableError {
	return &RecoverableError{Reason: reason, Err: err}
}

// RejectionError is a non-recoverable ledger or client-side business rejection
type RejectionError struct {
	Code   int // Program error code, 0 when unknown or raised client-side
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("rejected: %s (code %d)", e.Reason, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("rejected: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("rejected: %s", e.Reason)
	}
}

func (e *RejectionError) Unwrap() error { return e.Err }

// Rejection builds a client-side rejection with reason
func Rejection(reason string) *RejectionError {
	return &RejectionError{Reason: reason}
}

// Common rejection reasons raised before contacting the ledger
const (
	ReasonSoldOut         = "sold out"
	ReasonRoundClosed     = "round closed"
	ReasonWrongAuthority  = "wrong authority"
	ReasonNoTickets       = "no tickets sold"
	ReasonAlreadyRevealed = "randomness already fulfilled"
	ReasonNoWinner        = "no winner determined"
	ReasonInvalidWinner   = "invalid winner ticket"
	ReasonRoundExists     = "round already exists"
	ReasonInvalidRequest  = "invalid request"
)

// IsRejection reports whether err carries a RejectionError with the given reason
func IsRejection(err error, reason string) bool {
	var rej *RejectionError
	return errors.As(err, &rej) && rej.Reason == reason
}
