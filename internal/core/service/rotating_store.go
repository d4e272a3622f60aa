package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// RotatingStore keeps at most one live secret per principal on top of a
// SecretRepository. It is used for refresh tokens and reset codes alike.
type RotatingStore struct {
	repo      ports.SecretRepository
	newSecret func() (string, error)
	now       func() time.Time
}

func NewRotatingStore(repo ports.SecretRepository) *RotatingStore {
	return &RotatingStore{
		repo:      repo,
		newSecret: randomSecret,
		now:       time.Now,
	}
}

// randomSecret returns a random 128-bit identifier.
func randomSecret() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return id.String(), nil
}

func (s *RotatingStore) record(owner domain.Principal, ttl time.Duration) (domain.SecretRecord, error) {
	secret, err := s.newSecret()
	if err != nil {
		return domain.SecretRecord{}, err
	}
	now := s.now().UTC()
	return domain.SecretRecord{
		Secret:     secret,
		OwnerID:    owner.PrincipalID(),
		OwnerEmail: owner.PrincipalEmail(),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}, nil
}

// Issue replaces whatever the owner held with a fresh secret and returns it.
func (s *RotatingStore) Issue(ctx context.Context, owner domain.Principal, ttl time.Duration) (string, error) {
	rec, err := s.record(owner, ttl)
	if err != nil {
		return "", err
	}
	if err := s.repo.Replace(ctx, rec); err != nil {
		return "", fmt.Errorf("issue secret: %w", err)
	}
	return rec.Secret, nil
}

// IsValid reports whether owner holds exactly secret and it expires strictly
// after now.
func (s *RotatingStore) IsValid(ctx context.Context, secret string, owner domain.Principal) (bool, error) {
	if secret == "" {
		return false, nil
	}
	rec, err := s.repo.FindByOwner(ctx, owner.PrincipalID())
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check secret: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Secret), []byte(secret)) != 1 {
		return false, nil
	}
	return rec.LiveAt(s.now()), nil
}

// Rotate exchanges presented for a fresh secret in one compare-and-swap.
// It fails with domain.ErrInvalidOrExpired when presented is no longer the
// owner's live secret, so a secret can be rotated at most once.
func (s *RotatingStore) Rotate(ctx context.Context, owner domain.Principal, presented string, ttl time.Duration) (string, error) {
	rec, err := s.record(owner, ttl)
	if err != nil {
		return "", err
	}
	ok, err := s.repo.Swap(ctx, owner.PrincipalID(), presented, rec, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("rotate secret: %w", err)
	}
	if !ok {
		return "", domain.ErrInvalidOrExpired
	}
	return rec.Secret, nil
}

// Consume deletes secret if it is the owner's live secret. It fails with
// domain.ErrInvalidOrExpired otherwise.
func (s *RotatingStore) Consume(ctx context.Context, owner domain.Principal, secret string) error {
	_, err := s.Claim(ctx, owner, secret)
	return err
}

// Claim atomically removes secret if it is the owner's live secret and
// returns the removed record, so a caller whose follow-up work fails can
// Restore it. It fails with domain.ErrInvalidOrExpired otherwise.
func (s *RotatingStore) Claim(ctx context.Context, owner domain.Principal, secret string) (*domain.SecretRecord, error) {
	if secret == "" {
		return nil, domain.ErrInvalidOrExpired
	}
	rec, err := s.repo.FindByOwner(ctx, owner.PrincipalID())
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return nil, domain.ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("claim secret: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Secret), []byte(secret)) != 1 {
		return nil, domain.ErrInvalidOrExpired
	}

	ok, err := s.repo.DeleteIfMatch(ctx, owner.PrincipalID(), secret, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("consume secret: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOrExpired
	}
	return rec, nil
}

// Restore puts back a record taken by Claim, with its original secret and expiry.
func (s *RotatingStore) Restore(ctx context.Context, rec domain.SecretRecord) error {
	if err := s.repo.Replace(ctx, rec); err != nil {
		return fmt.Errorf("restore secret: %w", err)
	}
	return nil
}

// RevokeAll drops every secret the owner holds.
func (s *RotatingStore) RevokeAll(ctx context.Context, owner domain.Principal) error {
	if err := s.repo.DeleteByOwner(ctx, owner.PrincipalID()); err != nil {
		return fmt.Errorf("revoke secrets: %w", err)
	}
	return nil
}
