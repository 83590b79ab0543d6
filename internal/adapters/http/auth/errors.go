package auth

import "errors"

// Sentinel kinds for authentication.
var (
	ErrDisabled           = errors.New("admin access is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrEmptyPassword      = errors.New("password is required")
)
