// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mailclient/mailclient-auth/internal/model"
)

// ErrInvalidToken is the only error Verify returns. The specific cause is logged.
var ErrInvalidToken = errors.New("invalid google id token")

// Issuers accepted in the iss claim of Google ID tokens.
var acceptedIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

const defaultLeeway = 5 * time.Second

// KeySource resolves a signing key by its key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier validates Google ID tokens against Google's signing keys, the
// configured OAuth client id and the accepted issuers.
type Verifier struct {
	clientID string
	keys     KeySource
	logger   *slog.Logger
	leeway   time.Duration
	now      func() time.Time
}

// NewVerifier creates a new Verifier.
func NewVerifier(clientID string, keys KeySource, logger *slog.Logger) *Verifier {
	return &Verifier{
		clientID: clientID,
		keys:     keys,
		logger:   logger,
		leeway:   defaultLeeway,
		now:      time.Now,
	}
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string       `json:"email"`
	EmailVerified flexibleBool `json:"email_verified"`
	Name          string       `json:"name"`
	Picture       string       `json:"picture"`
}

// flexibleBool accepts both true and "true"; Google has emitted either form.
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexibleBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	*b = flexibleBool(v)
	return nil
}

// Verify checks the signature, audience, issuer and expiry of idToken and returns
// the identity it carries. Every failure yields ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*model.GoogleIdentity, error) {
	claims, err := v.parse(ctx, idToken)
	if err != nil {
		v.logger.Warn("google id token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	return &model.GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func (v *Verifier) parse(ctx context.Context, idToken string) (*idTokenClaims, error) {
	if idToken == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.ParseWithClaims(idToken, &idTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*idTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	if !isAcceptedIssuer(claims.Issuer) {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	if claims.Email == "" {
		return nil, errors.New("missing email")
	}

	return claims, nil
}

func isAcceptedIssuer(iss string) bool {
	for _, accepted := range acceptedIssuers {
		if iss == accepted {
			return true
		}
	}
	return false
}
