package explorer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("stays closed below failure threshold", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)

		for i := 0; i < 2; i++ {
			err := cb.Execute(func() error { return errBoom })
			assert.Equal(t, errBoom, err)
		}

		state := cb.GetState()
		assert.Equal(t, "CLOSED", state.State)
		assert.Equal(t, 2, state.FailureCount)
	})

	t.Run("opens at failure threshold and rejects without invoking", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)

		for i := 0; i < 3; i++ {
			cb.Execute(func() error { return errBoom })
		}
		assert.Equal(t, "OPEN", cb.GetState().State)

		invoked := false
		err := cb.Execute(func() error {
			invoked = true
			return nil
		})
		assert.Equal(t, ErrCircuitOpen, err)
		assert.False(t, invoked, "wrapped function must not run while OPEN")
	})

	t.Run("success resets failure count", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)

		cb.Execute(func() error { return errBoom })
		cb.Execute(func() error { return errBoom })
		require.NoError(t, cb.Execute(func() error { return nil }))

		assert.Equal(t, 0, cb.GetState().FailureCount)
	})

	t.Run("half open trial success closes the breaker", func(t *testing.T) {
		cb := NewCircuitBreaker(2, time.Minute)
		now := time.Now()
		cb.now = func() time.Time { return now }

		cb.Execute(func() error { return errBoom })
		cb.Execute(func() error { return errBoom })
		require.Equal(t, "OPEN", cb.GetState().State)

		// Before the reset timeout the breaker still rejects
		assert.Equal(t, ErrCircuitOpen, cb.Execute(func() error { return nil }))

		now = now.Add(61 * time.Second)
		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.Equal(t, "CLOSED", cb.GetState().State)
		assert.Equal(t, 0, cb.GetState().FailureCount)
	})

	t.Run("half open trial failure reopens with restarted timer", func(t *testing.T) {
		cb := NewCircuitBreaker(2, time.Minute)
		now := time.Now()
		cb.now = func() time.Time { return now }

		cb.Execute(func() error { return errBoom })
		cb.Execute(func() error { return errBoom })

		now = now.Add(61 * time.Second)
		err := cb.Execute(func() error { return errBoom })
		assert.Equal(t, errBoom, err)

		state := cb.GetState()
		assert.Equal(t, "OPEN", state.State)
		assert.Equal(t, now.Add(time.Minute), state.NextAttempt)

		// Rejected again until the new timer elapses
		assert.Equal(t, ErrCircuitOpen, cb.Execute(func() error { return nil }))
	})
}
