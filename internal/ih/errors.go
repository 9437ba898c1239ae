package ih

import "fmt"

// ServerError represents a 5xx error from the Index Herbariorum API.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("index herbariorum server error: HTTP %d", e.StatusCode)
}
