package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mailclient/mailclient-auth/internal/model"
	"github.com/mailclient/mailclient-auth/internal/repository"
)

// UserService exposes the current user's profile.
type UserService struct {
	store *repository.Store
}

// NewUserService creates a new UserService.
func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

// LoadByEmail returns the user with the given email, used to resolve the
// subject of an access token.
func (s *UserService) LoadByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *UserService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile changes the display name of a user.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.UserResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return model.UserResponse{}, err
	}

	var user *model.User
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		user, err = tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Name = name
		return tx.Users.Update(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}

	return user.ToResponse(), nil
}
