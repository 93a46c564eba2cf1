package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "dev-secret-change-in-production"

// minProductionSecretLen is 256 bits of HMAC key material.
const minProductionSecretLen = 32

// Config holds all runtime settings, read from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	DBDriver    string
	DatabaseDSN string

	JWT          JWTConfig
	Google       GoogleConfig
	Password     PasswordConfig
	RefreshToken RefreshTokenConfig
	RateLimit    RateLimitConfig
}

// JWTConfig configures access-token signing.
type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration
}

// GoogleConfig configures Google ID-token verification.
type GoogleConfig struct {
	ClientID            string
	CertsURL            string
	RequireVerifiedMail bool
}

// PasswordConfig selects the algorithm and work factor for new password hashes.
type PasswordConfig struct {
	Algorithm string
	Cost      int
}

// RefreshTokenConfig holds refresh-token lifecycle policy.
type RefreshTokenConfig struct {
	Rotation        bool
	MaxPerUser      int
	CleanupInterval time.Duration
}

// RateLimitConfig limits requests per client IP on the auth routes.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads the configuration from environment variables, applying defaults.
// Malformed values are reported as errors; call Validate before using the result.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DatabaseDSN: getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/mailclient?parseTime=true&loc=UTC"),
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
			Issuer: getEnv("JWT_ISSUER", "email-client-ai"),
		},
		Google: GoogleConfig{
			ClientID: os.Getenv("GOOGLE_CLIENT_ID"),
			CertsURL: getEnv("GOOGLE_CERTS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		},
		Password: PasswordConfig{
			Algorithm: strings.ToLower(getEnv("PASSWORD_HASH_ALGORITHM", "bcrypt")),
		},
	}

	cfg.LogLevel = parseLevel(getEnv("LOG_LEVEL", "info"), &errs)
	cfg.JWT.AccessTTL = getDuration("JWT_ACCESS_TTL", 15*time.Minute, &errs)
	cfg.JWT.RefreshTTL = getDuration("JWT_REFRESH_TTL", 7*24*time.Hour, &errs)
	cfg.JWT.ClockSkew = getDuration("JWT_CLOCK_SKEW", 5*time.Second, &errs)
	cfg.Google.RequireVerifiedMail = getBool("GOOGLE_REQUIRE_VERIFIED_EMAIL", true, &errs)
	cfg.Password.Cost = getInt("PASSWORD_HASH_COST", 12, &errs)
	cfg.RefreshToken.Rotation = getBool("REFRESH_TOKEN_ROTATION", true, &errs)
	cfg.RefreshToken.MaxPerUser = getInt("REFRESH_TOKEN_MAX_PER_USER", 5, &errs)
	cfg.RefreshToken.CleanupInterval = getDuration("REFRESH_TOKEN_CLEANUP_INTERVAL", time.Hour, &errs)
	cfg.RateLimit.RPS = getFloat("AUTH_RATE_LIMIT_RPS", 5, &errs)
	cfg.RateLimit.Burst = getInt("AUTH_RATE_LIMIT_BURST", 10, &errs)

	return cfg, errors.Join(errs...)
}

// IsProduction reports whether the service runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field constraints. The server refuses to start on any error.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported (mysql, postgres, sqlite)", c.DBDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set"))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.IsProduction() {
		if c.JWT.Secret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be set in production environment"))
		}
		if len(c.JWT.Secret) < minProductionSecretLen {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
		}
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER must not be empty"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL"))
	}

	if c.Google.ClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID must be set"))
	}
	if c.Google.CertsURL == "" {
		errs = append(errs, errors.New("GOOGLE_CERTS_URL must not be empty"))
	}

	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.Cost < 4 || c.Password.Cost > 31 {
			errs = append(errs, fmt.Errorf("PASSWORD_HASH_COST %d out of range 4..31", c.Password.Cost))
		}
	case "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASH_ALGORITHM %q is not supported (bcrypt, argon2id)", c.Password.Algorithm))
	}

	if c.RefreshToken.MaxPerUser == 0 || c.RefreshToken.MaxPerUser < -1 {
		errs = append(errs, errors.New("REFRESH_TOKEN_MAX_PER_USER must be -1 (unlimited) or positive"))
	}
	if c.RefreshToken.CleanupInterval < 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_CLEANUP_INTERVAL must not be negative"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func parseLevel(v string, errs *[]error) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		*errs = append(*errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
		return slog.LevelInfo
	}
	return level
}
