package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookstore/backoffice/internal/core/domain"
)

func fixedCodec(at time.Time) *TokenCodec {
	c := NewTokenCodec("test-secret-at-least-32-bytes-long!!", "bookstore", 15*time.Minute)
	c.now = func() time.Time { return at }
	return c
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	codec := fixedCodec(now.Add(time.Minute))

	token, err := codec.Issue("a@x.com", []string{"CLIENT"}, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "a@x.com" {
		t.Errorf("subject: want a@x.com, got %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "CLIENT" {
		t.Errorf("roles: want [CLIENT], got %v", claims.Roles)
	}
	if !claims.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expiry: want %v, got %v", now.Add(15*time.Minute), claims.ExpiresAt)
	}
}

func TestTokenCodec_ExpiredIsInvalid(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	codec := fixedCodec(now.Add(16 * time.Minute))

	token, err := codec.Issue("a@x.com", []string{"CLIENT"}, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	now := time.Now()
	codec := fixedCodec(now)

	token, _ := codec.Issue("a@x.com", []string{"EMPLOYEE"}, now)
	other := NewTokenCodec("another-secret-another-secret-1234", "bookstore", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign key, got %v", err)
	}

	parts := strings.Split(token, ".")
	forged := fmt.Sprintf(`{"roles":["EMPLOYEE"],"sub":"boss@x.com","iss":"bookstore","exp":%d,"iat":%d}`,
		now.Add(time.Hour).Unix(), now.Unix())
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))
	if _, err := codec.Verify(strings.Join(parts, ".")); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for altered payload, got %v", err)
	}
}

func TestTokenCodec_WrongIssuer(t *testing.T) {
	now := time.Now()
	foreign := NewTokenCodec("test-secret-at-least-32-bytes-long!!", "someone-else", time.Hour)
	token, _ := foreign.Issue("a@x.com", []string{"CLIENT"}, now)

	if _, err := fixedCodec(now).Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestTokenCodec_RejectsNoneAndOtherAlgorithms(t *testing.T) {
	now := time.Now()
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "a@x.com",
		"iss": "bookstore",
		"exp": now.Add(time.Hour).Unix(),
	})
	s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := fixedCodec(now).Verify(s); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestTokenCodec_MalformedInputNeverPanics(t *testing.T) {
	codec := fixedCodec(time.Now())
	for _, in := range []string{"", "abc", "a.b.c", "....", "Bearer x", strings.Repeat("x", 4096)} {
		if _, err := codec.Verify(in); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", in, err)
		}
	}
}

func TestTokenCodec_DefaultTTL(t *testing.T) {
	if got := NewTokenCodec("k", "", 0).TTL(); got != defaultAccessTTL {
		t.Fatalf("expected default ttl %v, got %v", defaultAccessTTL, got)
	}
}
