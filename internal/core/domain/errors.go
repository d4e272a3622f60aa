package domain

import "errors"

var (
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrAccountLocked     = errors.New("account locked")
	ErrInvalidOrExpired  = errors.New("token invalid or expired")
	ErrRateLimited       = errors.New("too many login attempts, try again later")
	ErrInvalidToken      = errors.New("invalid access token")
	ErrUnrecognizedRole  = errors.New("unrecognized role")
	ErrDeliveryFailed    = errors.New("reset code delivery failed")
	ErrSecretNotFound    = errors.New("secret not found")
)

// ErrUnrecognizedPrincipalKind signals a principal that is neither an Employee
// nor a Client. It is an internal invariant violation, never a user error.
var ErrUnrecognizedPrincipalKind = errors.New("unrecognized principal kind")

// ErrInvalidPassword rejects a new password that does not meet requirements.
var ErrInvalidPassword = errors.New("password does not meet requirements")
