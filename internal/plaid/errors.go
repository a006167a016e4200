package plaid

import (
	"errors"
	"fmt"
	"net/http"

	plaidgo "github.com/plaid/plaid-go/v20/plaid"
)

// ErrNotLinked is returned when a session has no linked bank item.
var ErrNotLinked = errors.New("no bank account linked")

// APIError is a non-2xx response from the Plaid API
type APIError struct {
	StatusCode     int
	ErrorType      string
	ErrorCode      string
	ErrorMessage   string
	DisplayMessage string
	RequestID      string
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("plaid: status %d", e.StatusCode)
	}
	return fmt.Sprintf("plaid: %s %s: %s", e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// IsItemLoginRequired reports whether the user must re-authenticate the
// item through Link.
func IsItemLoginRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == "ITEM_LOGIN_REQUIRED"
}

// apiError turns an SDK error carrying an HTTP error status into an
// *APIError. Transport and decoding failures are returned unchanged.
func apiError(err error, httpResp *http.Response) error {
	if httpResp == nil || httpResp.StatusCode < 300 {
		return err
	}
	apiErr := &APIError{StatusCode: httpResp.StatusCode}
	// a body that is not a Plaid error still yields the status code
	if plaidErr, convErr := plaidgo.ToPlaidError(err); convErr == nil {
		apiErr.ErrorType = string(plaidErr.GetErrorType())
		apiErr.ErrorCode = plaidErr.GetErrorCode()
		apiErr.ErrorMessage = plaidErr.GetErrorMessage()
		apiErr.DisplayMessage = plaidErr.GetDisplayMessage()
		apiErr.RequestID = plaidErr.GetRequestId()
	}
	return apiErr
}
