package circuit

// State represents the current breaker state.
type State int

const (
	// StateClosed accepts all requests and tracks failures.
	StateClosed State = iota
	// StateHalfOpen allows trial requests to determine recovery.
	StateHalfOpen
	// StateOpen rejects requests until the open timeout expires.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ParseState maps the persisted string representation back to a State.
// Unknown or empty values resolve to StateClosed, the initial state of
// every breaker identity.
func ParseState(raw string) State {
	switch raw {
	case "open":
		return StateOpen
	case "half_open":
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// GaugeValue returns the metric encoding of the state:
// 0=closed, 1=half_open, 2=open.
func (s State) GaugeValue() float64 {
	return float64(s)
}
