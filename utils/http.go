// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// MaxResponseBytes caps how much of an upstream response body is read.
const MaxResponseBytes = 1 << 20

// NewHTTPClient returns the client shared by the SKPort and webhook callers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}
