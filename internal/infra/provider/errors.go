// Package provider holds the pieces shared by every external data source:
// typed provider errors and the cross-adapter rate limiter.
package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed failure from an external provider API.
type Error struct {
	Provider string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Message)
}

// IsAuthError reports whether the provider rejected our credentials or
// signature. Auth failures are fatal per call and never retried.
func IsAuthError(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden
}

// IsRateLimited reports whether the provider throttled the call. The
// engine does not retry automatically; the caller must back off.
func IsRateLimited(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Status == http.StatusTooManyRequests
}
