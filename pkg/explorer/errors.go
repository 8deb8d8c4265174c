package explorer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when the provider rejects the configured
	// API key. It is never retried.
	ErrInvalidAPIKey = errors.New("explorer: invalid API key")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without invoking the provider.
	ErrCircuitOpen = errors.New("explorer: circuit breaker is open")
)

// RateLimitError indicates the provider reported throttling. Retryable.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("explorer: rate limited: %s", e.Message)
}

// IsRateLimit reports whether err is a provider rate-limit error.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
