package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gift-store/internal/domain"
)

var (
	ErrPasswordResetNotFound = errors.New("password reset token not found")
	ErrPasswordResetExpired  = errors.New("password reset token expired or already used")
)

// PasswordResetRepository stores single-use password reset tokens
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *domain.PasswordReset) error
	// Consume marks the token used and returns it. Expired or used tokens are rejected.
	Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordReset, error)
}

type passwordResetRepository struct {
	db *sql.DB
}

// NewPasswordResetRepository creates a new instance of PasswordResetRepository
func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *domain.PasswordReset) error {
	query := `
		INSERT INTO password_resets (token, user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, reset.Token, reset.UserID, reset.ExpiresAt, reset.Used, reset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}

	return nil
}

func (r *passwordResetRepository) Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordReset, error) {
	query := `
		UPDATE password_resets
		SET used = TRUE
		WHERE token = $1 AND NOT used AND expires_at > $2
		RETURNING token, user_id, expires_at, used, created_at
	`

	reset := &domain.PasswordReset{}
	err := r.db.QueryRowContext(ctx, query, token, now).Scan(
		&reset.Token,
		&reset.UserID,
		&reset.ExpiresAt,
		&reset.Used,
		&reset.CreatedAt,
	)
	if err == nil {
		return reset, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to consume password reset: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM password_resets WHERE token = $1)`, token).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up password reset: %w", err)
	}
	if exists {
		return nil, ErrPasswordResetExpired
	}
	return nil, ErrPasswordResetNotFound
}
