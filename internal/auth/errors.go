package auth

import "errors"

var (
	ErrMissingSigningKey = errors.New("auth: signing key is required")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrInvalidSignature  = errors.New("auth: invalid token signature")
	ErrExpiredToken      = errors.New("auth: token has expired")
)
