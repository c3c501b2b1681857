package provider

import (
	"errors"
	"fmt"
)

// ProviderError is returned for any failed provider call: transport
// errors, non-2xx responses, and malformed response bodies. StatusCode
// is zero when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError reports whether err (or anything it wraps) is a
// ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
