package google

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Admin SDK errors, mapped from *googleapi.Error status codes.
var (
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")
	ErrForbidden    = errors.New("google: forbidden (insufficient permissions)")
	ErrNotFound     = errors.New("google: resource not found")
	ErrRateLimited  = errors.New("google: rate limit exceeded")
)

// statusError keeps the original API error reachable through errors.As
// while matching the sentinel through errors.Is.
type statusError struct {
	sentinel error
	cause    error
}

func (e *statusError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *statusError) Is(target error) bool {
	return target == e.sentinel
}

func (e *statusError) Unwrap() error {
	return e.cause
}

// WrapError converts a Google API error to one matching a package sentinel.
// Other errors are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	var sentinel error
	switch gerr.Code {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		return err
	}
	return &statusError{sentinel: sentinel, cause: err}
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(WrapError(err), ErrForbidden)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(WrapError(err), ErrRateLimited)
}
