package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RefreshTokenBytes is the entropy of an opaque refresh token (256 bits).
const RefreshTokenBytes = 32

// GenerateRefreshToken returns a URL-safe opaque token drawn from crypto/rand.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
