package ports

import (
	"context"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// LoginInput carries the credentials of a login attempt. Role is the raw wire
// value and may be empty.
type LoginInput struct {
	Email    string
	Password string
	Role     string
}

// RefreshInput carries a refresh request.
type RefreshInput struct {
	RefreshToken string
	Email        string
	Role         string
}

// ChangePasswordInput carries a reset-code authorised password change.
type ChangePasswordInput struct {
	Email       string
	NewPassword string
	ResetCode   string
	Role        string
}

// SessionService defines the login / refresh / password-reset / logout use cases.
type SessionService interface {
	Login(ctx context.Context, in LoginInput) (*domain.Session, error)
	Refresh(ctx context.Context, in RefreshInput) (*domain.Session, error)
	// ForgotPassword issues a reset code, hands it to the mailer and returns it.
	ForgotPassword(ctx context.Context, email, role string) (string, error)
	ChangePassword(ctx context.Context, in ChangePasswordInput) error
	Logout(ctx context.Context, email, role string) error
}

// AccountService covers the blocked-client relation managed by employees.
type AccountService interface {
	BlockClient(ctx context.Context, email string) error
	UnblockClient(ctx context.Context, email string) error
}
