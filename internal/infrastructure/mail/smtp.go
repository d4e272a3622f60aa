package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// SMTPConfig holds the settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// StartTLS rejects servers that do not advertise STARTTLS. Disable only
	// for local catch-all servers.
	StartTLS bool
	// CodeTTL is shown to the recipient as the code's lifetime.
	CodeTTL time.Duration
}

// SMTPMailer sends reset codes through any SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendResetCode(ctx context.Context, toEmail, code string, role domain.Role) error {
	msg := resetMessage(m.cfg.From, toEmail, code, role, m.cfg.CodeTTL)
	if err := m.sendMail(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("sending reset code: %w", err)
	}
	return nil
}

var errNoStartTLS = errors.New("smtp server does not advertise STARTTLS")

func (m *SMTPMailer) sendMail(ctx context.Context, toEmail, msg string) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if m.cfg.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errNoStartTLS
		}
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(toEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := fmt.Fprint(wc, msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}

// headerSafe strips CR and LF so caller input cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

func resetMessage(from, to, code string, role domain.Role, ttl time.Duration) string {
	var b strings.Builder
	b.WriteString("From: " + headerSafe(from) + "\r\n")
	b.WriteString("To: " + headerSafe(to) + "\r\n")
	b.WriteString("Subject: Your password reset code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("A password reset was requested for your bookstore ")
	if role == domain.RoleEmployee {
		b.WriteString("staff ")
	}
	b.WriteString("account.\r\n\r\n")
	b.WriteString("Reset code: " + code + "\r\n\r\n")
	if ttl > 0 {
		b.WriteString("The code expires in " + formatDuration(ttl) + " and can be used once.\r\n")
	}
	b.WriteString("If you did not request a reset, ignore this email.\r\n")
	return b.String()
}

// formatDuration renders d as "1 hour", "15 minutes" or "2 days".
func formatDuration(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= 24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d >= time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Minutes()), "minute")
	}
}
