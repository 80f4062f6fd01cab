package bulwark

import (
	"net/http"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// NewRequestID generates a new request id.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDFromHeader returns the request id from headers.
func RequestIDFromHeader(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(RequestIDHeader)
}
