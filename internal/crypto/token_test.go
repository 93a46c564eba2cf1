package crypto

import (
	"encoding/base64"
	"testing"
)

func TestGenerateRefreshToken(t *testing.T) {
	token, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() unexpected error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != RefreshTokenBytes {
		t.Errorf("decoded length = %d, want %d", len(raw), RefreshTokenBytes)
	}
}

func TestGenerateRefreshTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := GenerateRefreshToken()
		if err != nil {
			t.Fatalf("GenerateRefreshToken() unexpected error: %v", err)
		}
		if seen[token] {
			t.Fatalf("GenerateRefreshToken() produced duplicate token %q", token)
		}
		seen[token] = true
	}
}
