package model

import "time"

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "Bearer"

// RefreshToken is a persisted refresh token. The stored record, not any claim
// inside the token string, decides whether the token is still usable.
type RefreshToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token has expired at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshTokenRequest carries a refresh token for the refresh and logout endpoints.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the token pair returned by login, Google login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// GoogleIdentity holds the claims extracted from a verified Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
