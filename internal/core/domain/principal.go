package domain

import (
	"strings"
	"time"
)

// Role selects which principal kind (and which backing stores) an operation targets.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleClient   Role = "CLIENT"
)

// ParseRole maps a wire value to a Role. The boolean is false when s is empty
// or names no known role; callers decide whether to default or reject.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleEmployee:
		return RoleEmployee, true
	case RoleClient:
		return RoleClient, true
	default:
		return "", false
	}
}

// Principal is an authenticated identity. It is implemented only by *Employee
// and *Client; the unexported marker keeps the set closed.
type Principal interface {
	PrincipalID() string
	PrincipalEmail() string
	principal()
}

// Employee is a back-office staff member.
type Employee struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Phone        string    `json:"phone,omitempty"`
	BirthDate    time.Time `json:"birth_date,omitempty"`
}

func (e *Employee) PrincipalID() string    { return e.ID }
func (e *Employee) PrincipalEmail() string { return e.Email }
func (*Employee) principal()               {}

// Client is a bookstore customer.
type Client struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	Name         string  `json:"name"`
	Surname      string  `json:"surname"`
	Balance      float64 `json:"balance"`
}

func (c *Client) PrincipalID() string    { return c.ID }
func (c *Client) PrincipalEmail() string { return c.Email }
func (*Client) principal()               {}

// RoleOf reports the role tag of p.
func RoleOf(p Principal) (Role, error) {
	switch p.(type) {
	case *Employee:
		return RoleEmployee, nil
	case *Client:
		return RoleClient, nil
	default:
		return "", ErrUnrecognizedPrincipalKind
	}
}

// Authorities returns the role-authority strings embedded in access tokens.
func Authorities(p Principal) ([]string, error) {
	role, err := RoleOf(p)
	if err != nil {
		return nil, err
	}
	return []string{string(role)}, nil
}

// PasswordHashOf returns the stored hash for either principal kind.
func PasswordHashOf(p Principal) (string, error) {
	switch v := p.(type) {
	case *Employee:
		return v.PasswordHash, nil
	case *Client:
		return v.PasswordHash, nil
	default:
		return "", ErrUnrecognizedPrincipalKind
	}
}

// WithoutCredentials returns a copy of p with its password hash cleared.
func WithoutCredentials(p Principal) (Principal, error) {
	switch v := p.(type) {
	case *Employee:
		c := *v
		c.PasswordHash = ""
		return &c, nil
	case *Client:
		c := *v
		c.PasswordHash = ""
		return &c, nil
	default:
		return nil, ErrUnrecognizedPrincipalKind
	}
}
