package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// CredentialVerifier checks an email/password pair against the principal kind
// selected by role.
type CredentialVerifier struct {
	resolver *PrincipalResolver
}

func NewCredentialVerifier(resolver *PrincipalResolver) *CredentialVerifier {
	return &CredentialVerifier{resolver: resolver}
}

// Authenticate resolves the principal and compares the password hash.
// Resolution failures (not found, locked) are returned as-is; a hash mismatch
// is always domain.ErrBadCredentials. The returned principal carries no hash.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, password string, role domain.Role) (domain.Principal, error) {
	if email == "" || password == "" {
		return nil, domain.ErrBadCredentials
	}

	p, err := v.resolver.Resolve(ctx, email, role)
	if err != nil {
		return nil, err
	}

	hash, err := domain.PasswordHashOf(p)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrBadCredentials
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBadCredentials, err)
	}

	return domain.WithoutCredentials(p)
}

// HashPassword produces the stored form of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
