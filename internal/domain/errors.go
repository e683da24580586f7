package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid user role")
	ErrWeakPassword       = errors.New("password must be between 8 and 128 characters")
)
