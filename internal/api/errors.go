package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported        = errors.New("operation not supported by api profile")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrSessionTerminated  = errors.New("session already terminated")
	ErrMissingCredentials = errors.New("api credentials are not configured")
)

// NotReadyError reports a system report whose general status is not Ready.
type NotReadyError struct {
	Status string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("campaign api is not ready (status %q)", e.Status)
}

// TransportError is returned for network failures and for any response
// status other than 200 or 201.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response missing a required field or an
// operation issued out of order.
type ProtocolError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := e.Op + ": " + e.Detail
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErrorf(op string, format string, args ...any) *ProtocolError {
	return &ProtocolError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
