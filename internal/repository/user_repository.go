package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sharedrive/internal/domain"
)

const userColumns = `id, first_name, last_name, username, email, password_hash, token, is_confirmed`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
        INSERT INTO users (id, first_name, last_name, username, email, password_hash, token, is_confirmed)
        VALUES (:id, :first_name, :last_name, :username, :email, :password_hash, :token, :is_confirmed)`

	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

// FindByEmailOrUsername returns the first user whose email equals email or
// whose username equals username.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $2 LIMIT 1`

	if err := r.db.GetContext(ctx, &user, query, email, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
        UPDATE users
        SET first_name = :first_name,
            last_name = :last_name,
            username = :username,
            email = :email,
            password_hash = :password_hash,
            token = :token,
            is_confirmed = :is_confirmed,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", mapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
