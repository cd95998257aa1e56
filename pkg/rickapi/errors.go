package rickapi

import (
	"errors"
	"fmt"
)

// Error is returned by every Client operation. StatusCode is zero when the
// request never produced an HTTP response or the body could not be decoded.
type Error struct {
	Op         string
	StatusCode int
	// Message is the "error" field of the API's JSON error body, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("rickapi %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("rickapi %s: status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("rickapi %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *Error with a response status.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
