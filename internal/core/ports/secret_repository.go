package ports

import (
	"context"
	"time"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// SecretRepository persists owner-scoped rotating secrets. One instance backs
// exactly one (role, purpose) pair, e.g. client refresh tokens.
type SecretRepository interface {
	// Replace atomically drops any record held by rec.OwnerID and stores rec.
	Replace(ctx context.Context, rec domain.SecretRecord) error

	// FindByOwner returns domain.ErrSecretNotFound when the owner holds nothing.
	FindByOwner(ctx context.Context, ownerID string) (*domain.SecretRecord, error)

	// DeleteByOwner removes every record for the owner. Deleting nothing is not an error.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// Swap replaces the owner's record with next only if the current record
	// still holds expected and has not expired at now. It reports whether the
	// swap happened.
	Swap(ctx context.Context, ownerID, expected string, next domain.SecretRecord, now time.Time) (bool, error)

	// DeleteIfMatch removes the owner's record only if it holds secret and has
	// not expired at now. It reports whether a record was removed.
	DeleteIfMatch(ctx context.Context, ownerID, secret string, now time.Time) (bool, error)
}

// SecretRepositories groups the four stores by role and purpose.
type SecretRepositories struct {
	EmployeeRefresh SecretRepository
	ClientRefresh   SecretRepository
	EmployeeReset   SecretRepository
	ClientReset     SecretRepository
}
