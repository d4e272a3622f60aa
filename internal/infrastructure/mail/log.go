package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// LogMailer writes reset codes to the log instead of sending them. It is meant
// for local development only.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendResetCode(_ context.Context, toEmail, code string, role domain.Role) error {
	m.log.Info().
		Str("to", toEmail).
		Str("role", string(role)).
		Str("reset_code", code).
		Msg("password reset code (log mailer)")
	return nil
}
