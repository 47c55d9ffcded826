package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the token is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token is valid but lacks the role.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	// ErrBadRequest carries backend validation failures such as a
	// duplicate email at signup.
	ErrBadRequest = errors.New("bad request")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers use errors.Is with the sentinel for the status class.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

func newStatusError(op string, status int, body []byte) *StatusError {
	return &StatusError{Op: op, StatusCode: status, Message: extractMessage(body)}
}

// extractMessage pulls a human message out of a plain-text or JSON body.
func extractMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") {
		var m struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &m) == nil {
			if m.Message != "" {
				return m.Message
			}
			return m.Error
		}
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// UserMessage returns the backend's message when err carries one.
func UserMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" && se.StatusCode < 500 {
		return se.Message
	}
	return fallback
}
