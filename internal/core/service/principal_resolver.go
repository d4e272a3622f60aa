package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// PrincipalResolver finds a principal by email within the store selected by role.
type PrincipalResolver struct {
	employees  ports.EmployeeRepository
	clients    ports.ClientRepository
	strictRole bool
	log        zerolog.Logger
}

// NewPrincipalResolver returns a resolver. With strictRole set, an empty or
// unknown role is rejected instead of falling back to CLIENT.
func NewPrincipalResolver(employees ports.EmployeeRepository, clients ports.ClientRepository, strictRole bool, log zerolog.Logger) *PrincipalResolver {
	return &PrincipalResolver{
		employees:  employees,
		clients:    clients,
		strictRole: strictRole,
		log:        log,
	}
}

// RoleFor turns a wire role into a Role. Unless strict, anything that is not
// EMPLOYEE or CLIENT resolves to CLIENT.
func (r *PrincipalResolver) RoleFor(raw string) (domain.Role, error) {
	if role, ok := domain.ParseRole(raw); ok {
		return role, nil
	}
	if r.strictRole {
		return "", fmt.Errorf("%w: %q", domain.ErrUnrecognizedRole, raw)
	}
	r.log.Warn().Str("role", raw).Msg("role missing or unrecognized, defaulting to CLIENT")
	return domain.RoleClient, nil
}

// Lookup finds email under role without consulting the blocked relation.
func (r *PrincipalResolver) Lookup(ctx context.Context, email string, role domain.Role) (domain.Principal, error) {
	switch role {
	case domain.RoleEmployee:
		emp, err := r.employees.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("resolve employee: %w", err)
		}
		return emp, nil
	case domain.RoleClient:
		cl, err := r.clients.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("resolve client: %w", err)
		}
		return cl, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnrecognizedRole, role)
	}
}

// Resolve looks up email under role. Employees have no blocked state; a client
// is checked against the blocked relation only once it is known to exist.
func (r *PrincipalResolver) Resolve(ctx context.Context, email string, role domain.Role) (domain.Principal, error) {
	p, err := r.Lookup(ctx, email, role)
	if err != nil {
		return nil, err
	}
	if err := r.EnsureActive(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EnsureActive fails with domain.ErrAccountLocked when p is a blocked client.
func (r *PrincipalResolver) EnsureActive(ctx context.Context, p domain.Principal) error {
	switch v := p.(type) {
	case *domain.Employee:
		return nil
	case *domain.Client:
		blocked, err := r.clients.IsBlocked(ctx, v.Email)
		if err != nil {
			return fmt.Errorf("resolve client: blocked check: %w", err)
		}
		if blocked {
			return domain.ErrAccountLocked
		}
		return nil
	default:
		return domain.ErrUnrecognizedPrincipalKind
	}
}

// ResolveRaw combines RoleFor and Resolve.
func (r *PrincipalResolver) ResolveRaw(ctx context.Context, email, rawRole string) (domain.Principal, domain.Role, error) {
	role, err := r.RoleFor(rawRole)
	if err != nil {
		return nil, "", err
	}
	p, err := r.Resolve(ctx, email, role)
	if err != nil {
		return nil, role, err
	}
	return p, role, nil
}
