package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory principal repositories
// ---------------------------------------------------------------------------

type stubEmployeeRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Employee
	// updateErr fails the next UpdatePasswordHash call, then clears.
	updateErr error
}

func newStubEmployeeRepo() *stubEmployeeRepo {
	return &stubEmployeeRepo{byEmail: make(map[string]*domain.Employee)}
}

func (r *stubEmployeeRepo) FindByEmail(_ context.Context, email string) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEmployeeRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr; err != nil {
		r.updateErr = nil
		return err
	}
	e, ok := r.byEmail[email]
	if !ok {
		return domain.ErrPrincipalNotFound
	}
	e.PasswordHash = hash
	return nil
}

type stubClientRepo struct {
	mu         sync.Mutex
	byEmail    map[string]*domain.Client
	blocked    map[string]bool
	blockedErr error
	blockCalls int
}

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{
		byEmail: make(map[string]*domain.Client),
		blocked: make(map[string]bool),
	}
}

func (r *stubClientRepo) FindByEmail(_ context.Context, email string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubClientRepo) IsBlocked(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockCalls++
	if r.blockedErr != nil {
		return false, r.blockedErr
	}
	return r.blocked[email], nil
}

func (r *stubClientRepo) SetBlocked(_ context.Context, email string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked[email] = blocked
	return nil
}

func (r *stubClientRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byEmail[email]
	if !ok {
		return domain.ErrPrincipalNotFound
	}
	c.PasswordHash = hash
	return nil
}

// ---------------------------------------------------------------------------
// In-memory secret repository (mirrors the atomic semantics of the real ones)
// ---------------------------------------------------------------------------

type stubSecretRepo struct {
	mu      sync.Mutex
	byOwner map[string]domain.SecretRecord
	err     error
}

func newStubSecretRepo() *stubSecretRepo {
	return &stubSecretRepo{byOwner: make(map[string]domain.SecretRecord)}
}

func (r *stubSecretRepo) Replace(_ context.Context, rec domain.SecretRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.byOwner[rec.OwnerID] = rec
	return nil
}

func (r *stubSecretRepo) FindByOwner(_ context.Context, ownerID string) (*domain.SecretRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.byOwner[ownerID]
	if !ok {
		return nil, domain.ErrSecretNotFound
	}
	return &rec, nil
}

func (r *stubSecretRepo) DeleteByOwner(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.byOwner, ownerID)
	return nil
}

func (r *stubSecretRepo) Swap(_ context.Context, ownerID, expected string, next domain.SecretRecord, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	cur, ok := r.byOwner[ownerID]
	if !ok || expected == "" || cur.Secret != expected || !cur.LiveAt(now) {
		return false, nil
	}
	r.byOwner[ownerID] = next
	return true, nil
}

func (r *stubSecretRepo) DeleteIfMatch(_ context.Context, ownerID, secret string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	cur, ok := r.byOwner[ownerID]
	if !ok || secret == "" || cur.Secret != secret || !cur.LiveAt(now) {
		return false, nil
	}
	delete(r.byOwner, ownerID)
	return true, nil
}

func (r *stubSecretRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byOwner)
}

// ---------------------------------------------------------------------------
// Mailer stub
// ---------------------------------------------------------------------------

type sentCode struct {
	to   string
	code string
	role domain.Role
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *stubMailer) SendResetCode(_ context.Context, to, code string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{to: to, code: code, role: role})
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

type fixture struct {
	employees *stubEmployeeRepo
	clients   *stubClientRepo
	secrets   ports.SecretRepositories
	codec     *TokenCodec
	mailer    *stubMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		employees: newStubEmployeeRepo(),
		clients:   newStubClientRepo(),
		secrets: ports.SecretRepositories{
			EmployeeRefresh: newStubSecretRepo(),
			ClientRefresh:   newStubSecretRepo(),
			EmployeeReset:   newStubSecretRepo(),
			ClientReset:     newStubSecretRepo(),
		},
		codec:  NewTokenCodec("test-secret-at-least-32-bytes-long!!", "bookstore", 15*time.Minute),
		mailer: &stubMailer{},
	}
	f.employees.byEmail["emp@x.com"] = &domain.Employee{
		ID: "e1", Email: "emp@x.com", PasswordHash: mustHash(t, "emp-pass"),
		Name: "Eve", Surname: "Stone", Phone: "+34 600 000 000",
	}
	f.clients.byEmail["a@x.com"] = &domain.Client{
		ID: "c1", Email: "a@x.com", PasswordHash: mustHash(t, "secret"),
		Name: "Ann", Surname: "Lee", Balance: 40,
	}
	f.clients.byEmail["blocked@x.com"] = &domain.Client{
		ID: "c2", Email: "blocked@x.com", PasswordHash: mustHash(t, "secret"),
	}
	f.clients.blocked["blocked@x.com"] = true
	return f
}

func (f *fixture) deps() SessionDeps {
	return SessionDeps{
		Employees:  f.employees,
		Clients:    f.clients,
		Secrets:    f.secrets,
		Tokens:     f.codec,
		Mailer:     f.mailer,
		RefreshTTL: time.Hour,
		ResetTTL:   10 * time.Minute,
	}
}

var (
	errBoom = errors.New("boom")
	testLog = zerolog.Nop()
)
