package ports

import (
	"time"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenVerifier validates access tokens without any lookup.
type TokenVerifier interface {
	// Verify returns domain.ErrInvalidToken for any expired, malformed or
	// tampered token.
	Verify(token string) (*AccessClaims, error)
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(subject string, roles []string, issuedAt time.Time) (string, error)
	TTL() time.Duration
}

// Identity converts verified claims to the request-scoped identity.
func (c AccessClaims) Identity() domain.Identity {
	return domain.Identity{Subject: c.Subject, Roles: c.Roles}
}
