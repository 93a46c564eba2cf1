package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mailclient/mailclient-auth/internal/crypto"
	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/repository"
)

// PasswordHasher hashes and verifies local passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// AccessTokenIssuer mints signed access tokens.
type AccessTokenIssuer interface {
	GenerateAccessToken(email string) (string, error)
	AccessTTL() time.Duration
}

// GoogleVerifier verifies Google ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*model.GoogleIdentity, error)
}

// AuthOptions holds the policy switches of AuthService.
type AuthOptions struct {
	// RotateRefreshTokens replaces the presented refresh token on every refresh.
	// When false the same token is returned until it expires.
	RotateRefreshTokens bool
	// RequireVerifiedGoogleEmail rejects Google identities whose email is unverified.
	RequireVerifiedGoogleEmail bool
}

// AuthService handles registration, login, Google login, refresh and logout.
type AuthService struct {
	store         *repository.Store
	hasher        PasswordHasher
	tokens        AccessTokenIssuer
	refreshTokens *RefreshTokenService
	google        GoogleVerifier
	opts          AuthOptions
	logger        *slog.Logger

	newRefreshToken func() (string, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	store *repository.Store,
	hasher PasswordHasher,
	tokens AccessTokenIssuer,
	refreshTokens *RefreshTokenService,
	google GoogleVerifier,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:           store,
		hasher:          hasher,
		tokens:          tokens,
		refreshTokens:   refreshTokens,
		google:          google,
		opts:            opts,
		logger:          logger,
		newRefreshToken: crypto.GenerateRefreshToken,
	}
}

// Register creates a local account. No tokens are issued; the user logs in separately.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	exists, err := s.store.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: &hash,
		Name:         name,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates local credentials. An unknown email, a wrong password
// and a Google-only account all fail with the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, err
		}
		// Spend the same hashing work as a real comparison.
		s.hasher.Verify(req.Password, s.dummyPasswordHash())
		s.logger.Debug("login failed", "reason", "unknown email")
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	if !user.HasPassword() {
		s.hasher.Verify(req.Password, s.dummyPasswordHash())
		s.logger.Debug("login failed", "user_id", user.ID, "reason", "no local password")
		return model.AuthResponse{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, *user.PasswordHash) {
		s.logger.Debug("login failed", "user_id", user.ID, "reason", "password mismatch")
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	resp, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return resp, nil
}

// GoogleLogin authenticates a Google ID token, creating or linking the account
// on first sign-in.
func (s *AuthService) GoogleLogin(ctx context.Context, req model.GoogleLoginRequest) (model.AuthResponse, error) {
	idToken := strings.TrimSpace(req.IDToken)
	if idToken == "" {
		return model.AuthResponse{}, ErrIDTokenRequired
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("google login rejected", "error", err)
		return model.AuthResponse{}, ErrInvalidGoogleToken
	}
	if s.opts.RequireVerifiedGoogleEmail && !identity.EmailVerified {
		s.logger.Warn("google login rejected", "reason", "email not verified")
		return model.AuthResponse{}, ErrInvalidGoogleToken
	}

	var user *model.User
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		user, err = s.findOrCreateGoogleUser(ctx, tx, identity)
		return err
	})
	if err != nil {
		if user, err = s.resolveGoogleConflict(ctx, identity, err); err != nil {
			return model.AuthResponse{}, err
		}
	}

	resp, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.logger.Info("google user logged in", "user_id", user.ID)
	return resp, nil
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, tx *repository.Store, identity *model.GoogleIdentity) (*model.User, error) {
	user, err := tx.Users.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	subject := identity.Subject

	// Only a verified Google email may claim an existing local account.
	if identity.EmailVerified {
		user, err = tx.Users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if user.GoogleID != nil {
				s.logger.Warn("google login rejected", "user_id", user.ID, "reason", "email linked to another google account")
				return nil, ErrEmailTaken
			}
			user.GoogleID = &subject
			if err := tx.Users.Update(ctx, user); err != nil {
				return nil, err
			}
			s.logger.Info("google account linked", "user_id", user.ID)
			return user, nil
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user = &model.User{
		Email:    email,
		GoogleID: &subject,
		Name:     name,
	}
	if err := tx.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created from google sign-in", "user_id", user.ID)
	return user, nil
}

// resolveGoogleConflict handles a unique-key violation raised while creating
// or linking a Google user. The lookup runs outside the failed transaction: a
// concurrent first sign-in with the same Google account may have committed
// the row, in which case that user is returned.
func (s *AuthService) resolveGoogleConflict(ctx context.Context, identity *model.GoogleIdentity, err error) (*model.User, error) {
	if !errors.Is(err, repository.ErrDuplicateEmail) && !errors.Is(err, repository.ErrDuplicateGoogleID) {
		return nil, err
	}

	user, lookupErr := s.store.Users.GetByGoogleID(ctx, identity.Subject)
	if lookupErr == nil {
		s.logger.Info("google sign-in resolved to concurrently created user", "user_id", user.ID)
		return user, nil
	}
	if !errors.Is(lookupErr, repository.ErrUserNotFound) {
		return nil, lookupErr
	}

	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	return nil, err
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled the presented token is consumed and a new one returned; two
// concurrent refreshes with the same token cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, req model.RefreshTokenRequest) (model.AuthResponse, error) {
	if req.RefreshToken == "" {
		return model.AuthResponse{}, ErrRefreshTokenRequired
	}

	rt, err := s.refreshTokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if rt, err = s.refreshTokens.VerifyExpiration(ctx, rt); err != nil {
		return model.AuthResponse{}, err
	}

	user, err := s.store.Users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrRefreshTokenNotFound
		}
		return model.AuthResponse{}, err
	}

	refreshToken := rt.Token
	if s.opts.RotateRefreshTokens {
		next, err := s.newRefreshToken()
		if err != nil {
			return model.AuthResponse{}, err
		}
		rotated, err := s.refreshTokens.Rotate(ctx, rt, next)
		if err != nil {
			return model.AuthResponse{}, err
		}
		refreshToken = rotated.Token
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.Email)
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.logger.Info("access token refreshed", "user_id", user.ID, "rotated", s.opts.RotateRefreshTokens)
	return s.authResponse(accessToken, refreshToken), nil
}

// Logout deletes the presented refresh token. Logging out with an unknown or
// already used token fails with ErrRefreshTokenNotFound.
func (s *AuthService) Logout(ctx context.Context, req model.RefreshTokenRequest) error {
	if req.RefreshToken == "" {
		return ErrRefreshTokenRequired
	}

	if err := s.refreshTokens.DeleteByToken(ctx, req.RefreshToken); err != nil {
		return err
	}

	s.logger.Info("user logged out")
	return nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *model.User) (model.AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.Email)
	if err != nil {
		return model.AuthResponse{}, err
	}

	refreshToken, err := s.newRefreshToken()
	if err != nil {
		return model.AuthResponse{}, err
	}
	if _, err := s.refreshTokens.Create(ctx, user.ID, refreshToken); err != nil {
		return model.AuthResponse{}, err
	}

	return s.authResponse(accessToken, refreshToken), nil
}

func (s *AuthService) authResponse(accessToken, refreshToken string) model.AuthResponse {
	return model.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    model.TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL() / time.Second),
	}
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
