package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

const defaultAccessTTL = 15 * time.Minute

// accessClaims is the JWT payload: registered claims plus role authorities.
type accessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256-signed access tokens. It holds no
// mutable state; the key is fixed at construction.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of every issued token.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs subject and roles with an expiry of issuedAt+TTL.
func (c *TokenCodec) Issue(subject string, roles []string, issuedAt time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token codec: empty subject")
	}
	claims := accessClaims{
		Roles: append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify parses token and checks signature, algorithm, issuer and expiry.
// Every failure, including a panic while parsing, yields domain.ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (claims *ports.AccessClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, domain.ErrInvalidToken
		}
	}()

	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	parsed := &accessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	tkn, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid || parsed.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	out := &ports.AccessClaims{
		Subject: parsed.Subject,
		Roles:   parsed.Roles,
	}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, nil
}
