package service

import "errors"

// Validation errors. The handler reports them as 400.
var (
	ErrEmailRequired        = errors.New("email is required")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrPasswordRequired     = errors.New("password is required")
	ErrWeakPassword         = errors.New("password must be at least 8 characters and contain uppercase, lowercase, and number")
	ErrPasswordTooLong      = errors.New("password must be at most 72 bytes")
	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name must be at most 100 characters")
	ErrIDTokenRequired      = errors.New("google id token is required")
	ErrRefreshTokenRequired = errors.New("refresh token is required")
)

// Authentication and state errors.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("an account with this email already exists")
	ErrInvalidGoogleToken   = errors.New("invalid google authentication token")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrUserNotFound         = errors.New("user not found")
)
