package circuit

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when a breaker refuses a request and no
// fallback is configured. Use errors.Is to detect it; the concrete error is
// an *OpenError carrying the service name.
var ErrCircuitOpen = errors.New("circuit: breaker open")

// OpenError reports a short-circuited call for a named service.
type OpenError struct {
	Service string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit: breaker open for %q", e.Service)
}

func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}
