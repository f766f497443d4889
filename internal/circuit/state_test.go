package circuit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voyago/backend-voyago/internal/circuit"
)

func TestStateStringRoundTrip(t *testing.T) {
	for _, s := range []circuit.State{circuit.StateClosed, circuit.StateHalfOpen, circuit.StateOpen} {
		require.Equal(t, s, circuit.ParseState(s.String()))
	}
}

func TestParseStateUnknownDefaultsToClosed(t *testing.T) {
	require.Equal(t, circuit.StateClosed, circuit.ParseState(""))
	require.Equal(t, circuit.StateClosed, circuit.ParseState("garbage"))
}

func TestOpenErrorUnwrapsToSentinel(t *testing.T) {
	err := &circuit.OpenError{Service: "content-provider"}
	require.ErrorIs(t, err, circuit.ErrCircuitOpen)
	require.Contains(t, err.Error(), "content-provider")

	var openErr *circuit.OpenError
	require.True(t, errors.As(error(err), &openErr))
	require.Equal(t, "content-provider", openErr.Service)
}
