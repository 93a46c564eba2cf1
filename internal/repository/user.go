package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailclient/mailclient-auth/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateGoogleID  = errors.New("google account already linked")
	ErrMissingCredentials = errors.New("user needs a password hash or a google id")
)

const userColumns = `id, email, password_hash, google_id, name, created_at, updated_at`

// UserRepository handles user persistence operations.
type UserRepository struct {
	q       querier
	dialect Dialect
}

// Create inserts a new user and sets the generated ID and timestamps on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.PasswordHash == nil && user.GoogleID == nil {
		return ErrMissingCredentials
	}

	now := time.Now().UTC()
	query := `INSERT INTO users (email, password_hash, google_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	id, err := insertID(ctx, r.q, r.dialect, query,
		user.Email, user.PasswordHash, user.GoogleID, user.Name, now, now,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			if strings.Contains(err.Error(), "google_id") {
				return ErrDuplicateGoogleID
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByGoogleID retrieves a user by their Google subject identifier.
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, rebind(r.dialect, `SELECT COUNT(*) FROM users WHERE email = ?`), email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return n > 0, nil
}

// Update persists the mutable fields of user (password hash, google id, name)
// and refreshes UpdatedAt.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	if user.PasswordHash == nil && user.GoogleID == nil {
		return ErrMissingCredentials
	}

	now := time.Now().UTC()
	query := `UPDATE users SET password_hash = ?, google_id = ?, name = ?, updated_at = ? WHERE id = ?`

	result, err := r.q.ExecContext(ctx, rebind(r.dialect, query),
		user.PasswordHash, user.GoogleID, user.Name, now, user.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateGoogleID
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.q.QueryRowContext(ctx, rebind(r.dialect, query), arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.GoogleID,
		&user.Name, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// insertID executes an INSERT and returns the generated primary key.
// PostgreSQL has no LastInsertId, so the statement gets a RETURNING clause there.
func insertID(ctx context.Context, q querier, dialect Dialect, query string, args ...any) (int64, error) {
	if dialect == DialectPostgres {
		var id int64
		err := q.QueryRowContext(ctx, rebind(dialect, query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
