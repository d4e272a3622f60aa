package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

const (
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultResetTTL   = 15 * time.Minute
	minPasswordLength = 8
)

// SessionDeps are the collaborators of SessionService.
type SessionDeps struct {
	Employees ports.EmployeeRepository
	Clients   ports.ClientRepository
	Secrets   ports.SecretRepositories
	Tokens    ports.TokenIssuer
	Mailer    ports.Mailer

	RefreshTTL time.Duration
	ResetTTL   time.Duration
	StrictRole bool
}

type sessionService struct {
	resolver   *PrincipalResolver
	verifier   *CredentialVerifier
	tokens     ports.TokenIssuer
	employees  ports.EmployeeRepository
	clients    ports.ClientRepository
	mailer     ports.Mailer
	refresh    map[domain.Role]*RotatingStore
	reset      map[domain.Role]*RotatingStore
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewSessionService wires the login / refresh / reset / logout use cases.
func NewSessionService(deps SessionDeps, log zerolog.Logger) ports.SessionService {
	return newSessionService(deps, log)
}

func newSessionService(deps SessionDeps, log zerolog.Logger) *sessionService {
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = defaultRefreshTTL
	}
	if deps.ResetTTL <= 0 {
		deps.ResetTTL = defaultResetTTL
	}
	resolver := NewPrincipalResolver(deps.Employees, deps.Clients, deps.StrictRole, log)
	return &sessionService{
		resolver:  resolver,
		verifier:  NewCredentialVerifier(resolver),
		tokens:    deps.Tokens,
		employees: deps.Employees,
		clients:   deps.Clients,
		mailer:    deps.Mailer,
		refresh: map[domain.Role]*RotatingStore{
			domain.RoleEmployee: NewRotatingStore(deps.Secrets.EmployeeRefresh),
			domain.RoleClient:   NewRotatingStore(deps.Secrets.ClientRefresh),
		},
		reset: map[domain.Role]*RotatingStore{
			domain.RoleEmployee: NewRotatingStore(deps.Secrets.EmployeeReset),
			domain.RoleClient:   NewRotatingStore(deps.Secrets.ClientReset),
		},
		refreshTTL: deps.RefreshTTL,
		resetTTL:   deps.ResetTTL,
		now:        time.Now,
		log:        log,
	}
}

// Login authenticates and issues an access token plus a fresh refresh token,
// superseding any refresh token the principal held.
func (s *sessionService) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
	role, err := s.resolver.RoleFor(in.Role)
	if err != nil {
		return nil, err
	}

	p, err := s.verifier.Authenticate(ctx, in.Email, in.Password, role)
	if err != nil {
		s.log.Info().Str("email", in.Email).Str("role", string(role)).Err(err).Msg("login rejected")
		return nil, err
	}

	access, err := s.accessToken(p)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.refresh[role].Issue(ctx, p, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("email", p.PrincipalEmail()).Str("role", string(role)).Msg("login succeeded")
	return s.session(access, refresh), nil
}

// Refresh exchanges a live refresh token for a new access token and a new
// refresh token. The presented token is unusable afterwards. The token is
// checked before the blocked relation, so an unknown account or a wrong token
// both answer domain.ErrInvalidOrExpired.
func (s *sessionService) Refresh(ctx context.Context, in ports.RefreshInput) (*domain.Session, error) {
	role, err := s.resolver.RoleFor(in.Role)
	if err != nil {
		return nil, err
	}
	p, err := s.resolver.Lookup(ctx, in.Email, role)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrInvalidOrExpired
		}
		return nil, err
	}

	store := s.refresh[role]
	ok, err := store.IsValid(ctx, in.RefreshToken, p)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOrExpired
	}
	if err := s.resolver.EnsureActive(ctx, p); err != nil {
		return nil, err
	}

	access, err := s.accessToken(p)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	next, err := store.Rotate(ctx, p, in.RefreshToken, s.refreshTTL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpired) {
			s.log.Warn().Str("email", in.Email).Str("role", string(role)).Msg("refresh token replayed concurrently")
			return nil, err
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return s.session(access, next), nil
}

// ForgotPassword issues a reset code for the principal and hands it to the mailer.
func (s *sessionService) ForgotPassword(ctx context.Context, email, rawRole string) (string, error) {
	p, role, err := s.resolver.ResolveRaw(ctx, email, rawRole)
	if err != nil {
		return "", err
	}

	code, err := s.reset[role].Issue(ctx, p, s.resetTTL)
	if err != nil {
		return "", fmt.Errorf("forgot password: %w", err)
	}

	if err := s.mailer.SendResetCode(ctx, p.PrincipalEmail(), code, role); err != nil {
		s.log.Error().Err(err).Str("email", email).Str("role", string(role)).Msg("reset code delivery failed")
		return "", fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	s.log.Info().Str("email", email).Str("role", string(role)).Msg("reset code issued")
	return code, nil
}

// ChangePassword sets a new password once the reset code checks out. The code
// is claimed before the hash is written, so it authorises one change only; if
// the write fails the claimed code is put back and can be retried.
func (s *sessionService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	if len(in.NewPassword) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	p, role, err := s.resolver.ResolveRaw(ctx, in.Email, in.Role)
	if err != nil {
		return err
	}

	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	store := s.reset[role]
	claimed, err := store.Claim(ctx, p, in.ResetCode)
	if err != nil {
		return err
	}
	if err := s.updatePasswordHash(ctx, p, hash); err != nil {
		if rerr := store.Restore(ctx, *claimed); rerr != nil {
			s.log.Error().Err(rerr).Str("email", in.Email).Str("role", string(role)).Msg("reset code could not be restored")
		}
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("email", in.Email).Str("role", string(role)).Msg("password changed")
	return nil
}

// Logout drops the principal's refresh token. It is idempotent.
func (s *sessionService) Logout(ctx context.Context, email, rawRole string) error {
	role, err := s.resolver.RoleFor(rawRole)
	if err != nil {
		return err
	}

	p, err := s.resolver.Lookup(ctx, email, role)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			s.log.Debug().Str("email", email).Msg("logout for unknown principal")
			return nil
		}
		return err
	}

	if err := s.refresh[role].RevokeAll(ctx, p); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *sessionService) accessToken(p domain.Principal) (string, error) {
	roles, err := domain.Authorities(p)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(p.PrincipalEmail(), roles, s.now())
}

func (s *sessionService) session(access, refresh string) *domain.Session {
	return &domain.Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresInSeconds: int64(s.tokens.TTL().Seconds()),
	}
}

func (s *sessionService) updatePasswordHash(ctx context.Context, p domain.Principal, hash string) error {
	switch v := p.(type) {
	case *domain.Employee:
		return s.employees.UpdatePasswordHash(ctx, v.Email, hash)
	case *domain.Client:
		return s.clients.UpdatePasswordHash(ctx, v.Email, hash)
	default:
		return domain.ErrUnrecognizedPrincipalKind
	}
}
