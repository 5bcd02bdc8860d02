package service

import "errors"

// Errors surfaced to the HTTP layer. Everything else is an internal failure.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrStudentNotFound    = errors.New("student not found")
)
