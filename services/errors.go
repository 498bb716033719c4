// services/errors.go
package services

import (
	"fmt"
)

// AuthError means the refresh endpoint rejected the credential.
// It must not be retried with the same credential.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	return fmt.Sprintf("refresh failed (code: %d, msg: %s)", e.Code, msg)
}

// ProtocolError means an endpoint answered with something that is not the expected JSON.
type ProtocolError struct {
	Endpoint   string
	HTTPStatus int
	Body       string
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response from %s (HTTP %d): %v: %s", e.Endpoint, e.HTTPStatus, e.Err, e.Body)
	}
	return fmt.Sprintf("invalid response from %s (HTTP %d): %s", e.Endpoint, e.HTTPStatus, e.Body)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError wraps a network-level failure.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClaimRejected means the claim endpoint returned a code that is neither
// success nor "already checked in".
type ClaimRejected struct {
	Code    int
	Message string
}

func (e *ClaimRejected) Error() string {
	return fmt.Sprintf("claim rejected (code: %d, msg: %s)", e.Code, e.Message)
}
