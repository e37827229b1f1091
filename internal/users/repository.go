package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidora-app/vidora/internal/shared"
)

// Repository defines persistence operations for user records.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	Exists(ctx context.Context, userName, email string) (bool, error)
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
}

const userColumns = `id, user_name, email, full_name, avatar_url, password_hash,
	COALESCE(refresh_token, ''), watch_history, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new user record. Duplicate username or email surfaces as
// shared.ErrConflict.
func (r *PGRepository) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	const query = `
		INSERT INTO users (id, user_name, email, full_name, avatar_url, password_hash, watch_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.UserName, user.Email, user.FullName, user.AvatarURL,
		user.PasswordHash, user.WatchHistory,
		pgtype.Timestamptz{Time: now, Valid: true},
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return fmt.Errorf("users: create: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// FindByIdentifier fetches a user by username or email. Both columns are
// stored lowercased, so callers pass a normalized identifier.
func (r *PGRepository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_name = $1 OR email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

// Exists reports whether a user with the given username or email is present.
func (r *PGRepository) Exists(ctx context.Context, userName, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE user_name = $1 OR email = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userName, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("users: exists: %w", err)
	}
	return exists, nil
}

// UpdateRefreshToken overwrites the stored refresh token, keeping exactly the
// most recently issued one per user.
func (r *PGRepository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	const query = `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, token)
}

// ClearRefreshToken removes the stored refresh token.
func (r *PGRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id)
}

// UpdatePassword persists a new password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, passwordHash)
}

// UpdateAvatar persists the hosted avatar URL once an upload completes.
func (r *PGRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	const query = `UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, avatarURL)
}

func (r *PGRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var (
		u         User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.FullName, &u.AvatarURL,
		&u.PasswordHash, &u.RefreshToken, &u.WatchHistory, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
