package checkout

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
)

var (
	ErrBusy         = errors.New("a payment request is already in progress")
	ErrMethodLocked = errors.New("payment method cannot change after the transaction was created")

	// ErrPaymentFailed wraps a 2xx answer whose transaction came back Failed.
	ErrPaymentFailed = errors.New("payment failed")
)

// IllegalStateError is returned when a transition is invoked from a stage
// that does not allow it. No network call is made.
type IllegalStateError struct {
	Op    string
	Stage Stage
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s not allowed in stage %s", e.Op, e.Stage)
}

type FieldError struct {
	Field string
	Error string
}

// ValidationError carries client-side field failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) fieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}

// Describe turns a transition error into one line fit for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		netErr   *api.NetworkError
		httpErr  *api.HTTPError
		validErr *ValidationError
	)
	switch {
	case errors.Is(err, ErrPaymentFailed):
		return err.Error() + ", start a new checkout"
	case errors.Is(err, api.ErrAuthLost):
		return "session expired, please log in again"
	case errors.As(err, &netErr):
		return "network unavailable, check your connection and try again"
	case errors.As(err, &httpErr):
		if httpErr.Message != "" {
			return httpErr.Message
		}
		if text := http.StatusText(httpErr.StatusCode); text != "" {
			return strings.ToLower(text)
		}
		return fmt.Sprintf("request failed with status %d", httpErr.StatusCode)
	case errors.As(err, &validErr):
		return "please correct the highlighted fields"
	default:
		return err.Error()
	}
}
