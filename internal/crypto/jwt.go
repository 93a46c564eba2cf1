package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "ACCESS"
	TokenTypeRefresh = "REFRESH"
)

// Claims represents the JWT claims of an access token. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// JWTService issues and validates HS256-signed access tokens.
type JWTService struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	leeway    time.Duration
	now       func() time.Time
}

// NewJWTService creates a new JWTService.
func NewJWTService(secret, issuer string, accessTTL, leeway time.Duration) *JWTService {
	return &JWTService{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		leeway:    leeway,
		now:       time.Now,
	}
}

// AccessTTL returns the lifetime of issued access tokens.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken creates a signed access token for the given email.
func (s *JWTService) GenerateAccessToken(email string) (string, error) {
	return s.sign(email, TokenTypeAccess, s.accessTTL)
}

func (s *JWTService) sign(subject, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ExtractUsername validates tokenString and returns its subject email.
// Any signature, format, expiry, issuer or token-type failure yields ErrInvalidToken.
func (s *JWTService) ExtractUsername(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsTokenValid reports whether tokenString is a valid access token issued for email.
func (s *JWTService) IsTokenValid(tokenString, email string) bool {
	claims, err := s.parse(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject == email
}

func (s *JWTService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
