// Package common defines shared constants and errors used across client and
// server layers. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrSessionRevoked      = errors.New("session revoked")

	// Error classes surfaced to the client UI. The typed errors below match
	// them through errors.Is.
	ErrValidation = errors.New("validation error")
	ErrRemote     = errors.New("remote error")
	ErrAuth       = errors.New("authentication failed")
)

// ValidationError reports caller-supplied input that was rejected before any
// network call was made. Indexes lists offending batch positions, if any.
type ValidationError struct {
	Message string
	Indexes []int
}

func (e *ValidationError) Error() string {
	if len(e.Indexes) == 0 {
		return e.Message
	}
	idx := make([]string, len(e.Indexes))
	for i, v := range e.Indexes {
		idx[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s (entries: %s)", e.Message, strings.Join(idx, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RemoteError wraps a transport failure or a non-2xx response. Status is the
// HTTP status code, zero when the request never got a response.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote error: %d %s", e.Status, e.Message)
	}
	return "remote error: " + e.Message
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

func (e *RemoteError) Unwrap() error { return e.Err }

// AuthError is returned by an explicit sign-in when the credentials are
// rejected or the profile lookup fails.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sign-in failed: %s: %v", e.Reason, e.Err)
	}
	return "sign-in failed: " + e.Reason
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func (e *AuthError) Unwrap() error { return e.Err }
