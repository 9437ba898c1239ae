package grscicoll

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the registry rejected the write credentials.
var ErrUnauthorized = errors.New("registry rejected the credentials")

// ServerError represents a 5xx error from the registry API.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("registry server error: HTTP %d", e.StatusCode)
}
