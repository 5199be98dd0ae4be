package servicenow

import (
	"errors"
	"fmt"
)

// ErrNoIdentifier is returned when a create call succeeds at the HTTP level
// but the response carries no sys_id.
var ErrNoIdentifier = errors.New("servicenow: response missing sys_id")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Detail != "":
		return fmt.Sprintf("servicenow: http %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	case e.Message != "":
		return fmt.Sprintf("servicenow: http %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("servicenow: http %d", e.StatusCode)
	}
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
