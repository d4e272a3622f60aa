package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/ports"
)

type accountService struct {
	clients       ports.ClientRepository
	clientRefresh *RotatingStore
	log           zerolog.Logger
}

// NewAccountService manages the blocked-client relation.
func NewAccountService(clients ports.ClientRepository, clientRefresh ports.SecretRepository, log zerolog.Logger) ports.AccountService {
	return &accountService{
		clients:       clients,
		clientRefresh: NewRotatingStore(clientRefresh),
		log:           log,
	}
}

// BlockClient marks the client locked and revokes its refresh token so the
// lock takes effect once the current access token expires.
func (s *accountService) BlockClient(ctx context.Context, email string) error {
	cl, err := s.clients.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("block client: %w", err)
	}
	if err := s.clients.SetBlocked(ctx, email, true); err != nil {
		return fmt.Errorf("block client: %w", err)
	}
	if err := s.clientRefresh.RevokeAll(ctx, cl); err != nil {
		return fmt.Errorf("block client: %w", err)
	}
	s.log.Info().Str("email", email).Msg("client blocked")
	return nil
}

func (s *accountService) UnblockClient(ctx context.Context, email string) error {
	if _, err := s.clients.FindByEmail(ctx, email); err != nil {
		return fmt.Errorf("unblock client: %w", err)
	}
	if err := s.clients.SetBlocked(ctx, email, false); err != nil {
		return fmt.Errorf("unblock client: %w", err)
	}
	s.log.Info().Str("email", email).Msg("client unblocked")
	return nil
}
