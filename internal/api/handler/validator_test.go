package handler

import (
	"strings"
	"testing"
)

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&changePasswordRequest{Email: "a@x.com", NewPassword: "short", ResetCode: "c"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "new_password must be at least 8 characters" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidator_JoinsEveryFailure(t *testing.T) {
	err := NewValidator().Validate(&loginRequest{Email: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"email must be a valid email", "password is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestValidator_ValidRequest(t *testing.T) {
	if err := NewValidator().Validate(&clientEmailRequest{Email: "a@x.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
