package submit

// State is the lifecycle position of one submission attempt
type State int

const (
	StateIdle State = iota
	StateFingerprinted
	StateSigned
	StateSent
	StateConfirming
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFingerprinted:
		return "fingerprinted"
	case StateSigned:
		return "signed"
	case StateSent:
		return "sent"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows within the attempt
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Observer receives every state transition. attempt is 0 before the first
// attempt starts.
type Observer func(attempt int, state State)
