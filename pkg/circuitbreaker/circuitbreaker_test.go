package circuitbreaker_test

import (
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/pkg/circuitbreaker"
)

func TestCircuitBreaker(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker("test")
	failing := func() (interface{}, error) {
		return nil, fmt.Errorf("unavailable")
	}

	for i := 0; i <= circuitbreaker.MaxNumOfFailingRequests; i++ {
		require.Equal(t, gobreaker.StateClosed, cb.State())
		_, err := cb.Execute(failing)
		require.Error(t, err)
	}

	require.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreakerTolerance(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker("test")

	for i := 0; i < 3*circuitbreaker.MaxNumOfFailingRequests; i++ {
		_, err := cb.Execute(func() (interface{}, error) {
			if i%2 == 0 {
				return nil, fmt.Errorf("unavailable")
			}
			return i, nil
		})
		if i%2 == 0 {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
	require.Equal(t, gobreaker.StateClosed, cb.State())
}
