package middleware

import (
	"net/http"
	"strings"

	"github.com/devmarvs/bulwark/apperr"
)

func shouldSkipPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == pattern {
			return true
		}
	}
	return false
}

// statusOf resolves the status a request ends with once the error handler
// has turned err into a response.
func statusOf(recorder *responseRecorder, err error) int {
	if err == nil {
		return recorder.Status()
	}
	if appErr := apperr.As(err); appErr != nil {
		return appErr.Status
	}
	if recorder.status != 0 {
		return recorder.status
	}
	return http.StatusInternalServerError
}
