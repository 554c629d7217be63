package auth

import "errors"

// ErrSessionExpired is returned when a bearer token has already expired.
var ErrSessionExpired = errors.New("session token expired")

// ErrTokenEmpty is returned when an empty token is supplied to Set.
var ErrTokenEmpty = errors.New("session token is empty")
