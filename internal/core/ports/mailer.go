package ports

import (
	"context"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, toEmail, code string, role domain.Role) error
}
