package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voucher-queue/internal/domain"
)

// PostgresUsersRepo 操作员账号 Repository 实现（users 表）
type PostgresUsersRepo struct {
	db *sql.DB
}

var _ UsersRepo = (*PostgresUsersRepo)(nil)

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

func (r *PostgresUsersRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT
			user_id::text,
			username,
			password_hash,
			role,
			active,
			created_at,
			last_login_at
		FROM users
		WHERE username = $1 AND active
	`

	var (
		u         domain.User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (user_id, username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username)
		DO UPDATE SET password_hash = EXCLUDED.password_hash,
		              role = EXCLUDED.role,
		              active = EXCLUDED.active
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Active, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE user_id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
