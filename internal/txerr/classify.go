package txerr

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Class is the retry-relevant category of an error
type Class int

const (
	ClassFatal Class = iota
	ClassRecoverable
	ClassAlreadyProcessed
	ClassDuplicate
	ClassUserRejected
	ClassRejected
)

func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassAlreadyProcessed:
		return "already_processed"
	case ClassDuplicate:
		return "duplicate"
	case ClassUserRejected:
		return "user_rejected"
	case ClassRejected:
		return "rejected"
	default:
		return "fatal"
	}
}

// programErrors maps program and framework error codes to rejection reasons
var programErrors = map[int]string{
	0:    "account already in use",
	2001: ReasonWrongAuthority, // ConstraintHasOne
	2003: "constraint violated",
	3012: "account not initialized",
	6000: "invalid round id",
	6001: ReasonRoundClosed, // LotteryNotActive
	6002: ReasonSoldOut,     // LotteryFull
	6003: "invalid round state",
	6004: ReasonNoTickets,
	6005: ReasonAlreadyRevealed,
	6006: "randomness not fulfilled",
	6007: ReasonNoWinner,
	6008: ReasonInvalidWinner,
	6009: "invalid payout",
}

var (
	hexCodePattern = regexp.MustCompile(`custom program error: 0x([0-9a-f]+)`)
	decCodePattern = regexp.MustCompile(`custom[":\s]+(\d+)`)
)

var alreadyProcessedPatterns = []string{
	"already been processed",
	"alreadyprocessed",
}

var staleTokenPatterns = []string{
	"blockhash not found",
	"blockhashnotfound",
}

var expiredPatterns = []string{
	"block height exceeded",
	"has expired",
	"transaction expired",
}

var insufficientFundsPatterns = []string{
	"insufficient funds",
	"insufficient lamports",
	"found no record of a prior credit",
}

var userRejectedPatterns = []string{
	"user rejected",
	"rejected the request",
}

var timeoutPatterns = []string{
	"i/o timeout",
	"tls handshake timeout",
	"connection timed out",
	"deadline exceeded",
	"timeout",
}

// Network errors that are typically recoverable
var transientPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"temporary failure",
	"network is unreachable",
	"broken pipe",
	"eof",
	"no such host",
	"dial tcp",
	"too many requests",
	"429",
	"502",
	"503",
	"node is behind",
}

// Classify maps err to its retry class. Typed errors are matched first, then
// raw RPC error text.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		return ClassAlreadyProcessed
	case errors.Is(err, ErrDuplicateInFlight):
		return ClassDuplicate
	case errors.Is(err, ErrUserRejected):
		return ClassUserRejected
	}

	var rec *RecoverableError
	if errors.As(err, &rec) {
		return ClassRecoverable
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		return ClassRejected
	}

	normalized := Normalize(err)
	if !isTyped(normalized) {
		return ClassFatal
	}
	return Classify(normalized)
}

// Normalize converts a raw error into the taxonomy. Already typed errors and
// unrecognised errors are returned unchanged.
func Normalize(err error) error {
	if err == nil || isTyped(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Recoverable(ReasonTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())

	if code, ok := programErrorCode(msg); ok {
		reason, known := programErrors[code]
		if !known {
			reason = "program error"
		}
		return &RejectionError{Code: code, Reason: reason, Err: err}
	}

	switch {
	case containsAny(msg, alreadyProcessedPatterns):
		return errors.Join(ErrAlreadyProcessed, err)
	case containsAny(msg, userRejectedPatterns):
		return errors.Join(ErrUserRejected, err)
	case containsAny(msg, staleTokenPatterns):
		return Recoverable(ReasonStaleToken, err)
	case containsAny(msg, expiredPatterns):
		return Recoverable(ReasonExpired, err)
	case containsAny(msg, insufficientFundsPatterns):
		return Recoverable(ReasonInsufficientFunds, err)
	case containsAny(msg, timeoutPatterns):
		return Recoverable(ReasonTimeout, err)
	case containsAny(msg, transientPatterns):
		return Recoverable(ReasonTransient, err)
	}

	return err
}

// ReasonOf returns the recoverable reason carried by err, or "" when there is none
func ReasonOf(err error) Reason {
	var rec *RecoverableError
	if errors.As(err, &rec) {
		return rec.Reason
	}
	return ""
}

// Describe returns a short human-readable reason for err
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	for _, sentinel := range []error{ErrDuplicateInFlight, ErrAlreadyProcessed, ErrUserRejected} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if reason := ReasonOf(err); reason != "" {
		return string(reason)
	}
	return err.Error()
}

func isTyped(err error) bool {
	var rec *RecoverableError
	var rej *RejectionError
	return errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrDuplicateInFlight) ||
		errors.Is(err, ErrUserRejected) ||
		errors.As(err, &rec) ||
		errors.As(err, &rej)
}

func programErrorCode(msg string) (int, bool) {
	if m := hexCodePattern.FindStringSubmatch(msg); m != nil {
		code, err := strconv.ParseInt(m[1], 16, 64)
		return int(code), err == nil
	}
	if m := decCodePattern.FindStringSubmatch(msg); m != nil {
		code, err := strconv.Atoi(m[1])
		return code, err == nil
	}
	return 0, false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
