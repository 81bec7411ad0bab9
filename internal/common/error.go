// Package common defines shared constants and sentinel errors used across
// the server and client layers of ergoauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors, rejected before any store access.
	ErrInvalidEmail  = errors.New("invalid email")
	ErrWeakPassword  = errors.New("weak password")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidCreds  = errors.New("invalid credentials")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongTokenUse = errors.New("token kind mismatch")

	// Refresh rotation errors.
	ErrNoRefresh      = errors.New("no refresh")
	ErrInvalidRefresh = errors.New("invalid refresh")
	ErrRevokedRefresh = errors.New("revoked refresh")

	// OAuth federation errors.
	ErrMissingCode    = errors.New("missing code")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidProfile = errors.New("invalid google profile")
	ErrOAuthDisabled  = errors.New("oauth not configured")
)
