package codec

import "fmt"

// ParseErrorKind classifies a decode failure
type ParseErrorKind int

const (
	// TooShort means the buffer is smaller than the record's fixed size
	TooShort ParseErrorKind = iota + 1
	// Truncated means a field read ran past the end of the buffer
	Truncated
	// InvariantViolation means the record decoded but breaks a data-model rule
	InvariantViolation
)

func (k ParseErrorKind) String() string {
	switch k {
	case TooShort:
		return "too_short"
	case Truncated:
		return "truncated"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on kind only
var (
	ErrTooShort           = &ParseError{Kind: TooShort}
	ErrTruncated          = &ParseError{Kind: Truncated}
	ErrInvariantViolation = &ParseError{Kind: InvariantViolation}
)

// ParseError describes why a record could not be decoded or validated
type ParseError struct {
	Kind   ParseErrorKind
	Record string // "lottery" or "ticket"
	Field  string
	Offset int
	Need   int
	Have   int
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case TooShort:
		return fmt.Sprintf("%s record too short: need %d bytes, have %d", e.Record, e.Need, e.Have)
	case Truncated:
		return fmt.Sprintf("%s record truncated reading %s at offset %d: need %d bytes, have %d",
			e.Record, e.Field, e.Offset, e.Need, e.Have)
	case InvariantViolation:
		return fmt.Sprintf("%s invariant violated on %s: %s", e.Record, e.Field, e.Detail)
	default:
		return fmt.Sprintf("%s parse error", e.Record)
	}
}

// Is matches any ParseError of the same kind
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
