package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tiancizhuang/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: dialect}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), username))
}

// Create inserts the user and fills in the generated id.
// A taken username yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	const query = `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.dialect.Rebind(query),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, fmt.Errorf("username %q: %w", user.Username, ErrConflict)
		}
		return types.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
