package auth

import "errors"

var (
	ErrInvalidProviderToken = errors.New("invalid provider token")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthorized         = errors.New("unauthorized")
)
