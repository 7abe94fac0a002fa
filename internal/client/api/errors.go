package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthLost     = errors.New("authentication lost")
	ErrWaitListFull = errors.New("refresh wait list is full")
)

// NetworkError reports a call that produced no HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response that survived the retry logic.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http error: status=%d", e.StatusCode)
}

func newHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{StatusCode: status, Message: extractMessage(body), Body: body}
}

// extractMessage pulls a human-readable message out of an error body. JSON
// bodies with "message" or "error" are preferred, then short plain text.
func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

// IsUnauthorized is IsStatus(err, 401).
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

func authLost(cause error) error {
	if cause == nil {
		return ErrAuthLost
	}
	return fmt.Errorf("%w: %w", ErrAuthLost, cause)
}
