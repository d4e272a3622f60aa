package ports

import (
	"context"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// EmployeeRepository is the employee persistence collaborator.
type EmployeeRepository interface {
	// FindByEmail returns domain.ErrPrincipalNotFound when no employee matches.
	FindByEmail(ctx context.Context, email string) (*domain.Employee, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

// ClientRepository is the client persistence collaborator, including the
// blocked-account side relation.
type ClientRepository interface {
	// FindByEmail returns domain.ErrPrincipalNotFound when no client matches.
	FindByEmail(ctx context.Context, email string) (*domain.Client, error)
	IsBlocked(ctx context.Context, email string) (bool, error)
	SetBlocked(ctx context.Context, email string, blocked bool) error
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}
