package adt

import (
	"errors"
	"fmt"
	"strings"
)

// Numeric error codes surfaced in error envelopes. The values follow the
// JSON-RPC convention used by the MCP wire protocol.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotLoggedIn indicates an operation ran after an explicit Logout;
	// a fresh Login is required before further calls.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrStatefulRequired indicates an operation needs a stateful session.
	ErrStatefulRequired = errors.New("operation requires a stateful session")
)

// Compile-time verification that all error types implement error.
var (
	_ error = (*Error)(nil)
	_ error = (*SessionError)(nil)
)

// Error is a structured protocol error whose message and code pass through
// to the caller unchanged. Anything else is flattened to a generic internal
// error before it crosses the server boundary.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewMethodNotFound reports an operation name absent from the registry.
func NewMethodNotFound(name string) *Error {
	return &Error{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("unknown tool: %s", name),
	}
}

// NewInvalidParams reports arguments that a provider could not use.
func NewInvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

// SessionError indicates the authenticated ADT session was rejected by the
// backend: a stale CSRF token or a timed-out stateful session. It is the
// typed half of the session-expiry classification; IsSessionExpired is the
// single authority that providers and tests share.
type SessionError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session rejected (HTTP %d): %s: %v", e.StatusCode, e.Reason, e.Err)
	}

	return fmt.Sprintf("session rejected (HTTP %d): %s", e.StatusCode, e.Reason)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// expiryMarkers are the message fragments that classify an untyped failure
// as session expiry. Matching is case-insensitive.
var expiryMarkers = []string{
	"csrf token",
	"session timeout",
	"session timed out",
	"session expired",
	"invalid token",
}

// IsSessionExpired reports whether err indicates the session must be
// re-established. True for a typed *SessionError, or when the message
// carries a recognizable session-timeout or token-invalidation marker.
// All other failures, including business and validation errors, are not
// retry-worthy.
func IsSessionExpired(err error) bool {
	if err == nil {
		return false
	}

	var se *SessionError
	if errors.As(err, &se) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range expiryMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
