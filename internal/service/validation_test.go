package service

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr error
	}{
		{"a@x.com", nil},
		{"first.last+tag@sub.example.org", nil},
		{"", ErrEmailRequired},
		{"plainaddress", ErrInvalidEmail},
		{"a@localhost", ErrInvalidEmail},
		{"@x.com", ErrInvalidEmail},
		{"a b@x.com", ErrInvalidEmail},
		{strings.Repeat("a", 250) + "@x.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if err := validateEmail(tt.email); err != tt.wantErr {
				t.Errorf("validateEmail(%q) = %v, want %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "P@ssw0rd", nil},
		{"valid unicode", "Pässwörd1", nil},
		{"empty", "", ErrPasswordRequired},
		{"too short", "Pa1", ErrWeakPassword},
		{"missing upper", "passw0rd", ErrWeakPassword},
		{"missing lower", "PASSW0RD", ErrWeakPassword},
		{"missing digit", "Password", ErrWeakPassword},
		{"too long", "Aa1" + strings.Repeat("x", 70), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validatePassword(tt.password); err != tt.wantErr {
				t.Errorf("validatePassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Ann@Example.COM "); got != "ann@example.com" {
		t.Errorf("normalizeEmail() = %q, want %q", got, "ann@example.com")
	}
}
