package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// AuthExpiredError is returned for 401 responses. Callers must clear the local
// session and route the user back to the login entry point.
type AuthExpiredError struct {
	Op string
}

func (e AuthExpiredError) Error() string {
	return fmt.Sprintf("%s: session expired or rejected (401)", e.Op)
}

// ForbiddenError is returned for 403 responses. The credential stays intact;
// the caller renders a permission-denied message.
type ForbiddenError struct {
	Op      string
	Message string
}

func (e ForbiddenError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: forbidden: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: forbidden (403)", e.Op)
}

// StatusError covers every other non-2xx response.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// IsAuthExpired reports whether err (anywhere in its chain) is a 401.
func IsAuthExpired(err error) bool {
	var ae AuthExpiredError
	return errors.As(err, &ae)
}

// IsForbidden reports whether err (anywhere in its chain) is a 403.
func IsForbidden(err error) bool {
	var fe ForbiddenError
	return errors.As(err, &fe)
}

func statusError(resp *http.Response) error {
	op := resp.Request.Method + " " + resp.Request.URL.Path
	msg := responseMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return AuthExpiredError{Op: op}
	case http.StatusForbidden:
		return ForbiddenError{Op: op, Message: msg}
	default:
		return StatusError{Op: op, Status: resp.StatusCode, Message: msg}
	}
}

// responseMessage pulls a human-readable message out of an error body, if the
// backend sent one ({"message": "..."} or {"error": "..."}).
func responseMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
