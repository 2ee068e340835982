package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for non-2xx responses and for payloads that could not be
// decoded. Message is safe to show to the user.
type Error struct {
	// Status is the HTTP status code of the response.
	Status int
	// Message is the human-readable reason, taken from the response body when possible.
	Message string
	// Internal holds the underlying error, if any.
	Internal error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("api error %d: %s (internal: %v)", e.Status, e.Message, e.Internal)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Internal
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err carries a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Message returns the text that should be shown to the user for err. API
// errors yield the server-provided message; other errors their own text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// errorBody covers the error shapes the backend is known to produce:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": "..."} and {"error": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// extractMessage derives a user-facing message from an error response body.
// A null or empty detail is skipped.
func extractMessage(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return http.StatusText(status)
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return trimmed
	}

	if len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.Error != "" {
		return eb.Error
	}
	// A JSON object without a usable message field, such as {"detail": null}.
	return http.StatusText(status)
}
