// Package common holds sentinel errors and small helpers shared by the
// checkout client and the payments sandbox. Callers should use errors.Is to
// match the errors.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// State errors: the requested change conflicts with the current state.
	ErrConflict = errors.New("conflict")

	// Auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
