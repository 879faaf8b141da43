package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gift-store/internal/domain"
)

var (
	ErrOccasionNotFound      = errors.New("occasion not found")
	ErrOccasionAlreadyExists = errors.New("occasion with this id already exists")
)

// OccasionRepository defines the interface for occasion data access
type OccasionRepository interface {
	Create(ctx context.Context, occasion *domain.Occasion) error
	Update(ctx context.Context, occasion *domain.Occasion) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Occasion, error)
}

type occasionRepository struct {
	db *sql.DB
}

// NewOccasionRepository creates a new instance of OccasionRepository
func NewOccasionRepository(db *sql.DB) OccasionRepository {
	return &occasionRepository{db: db}
}

func (r *occasionRepository) Create(ctx context.Context, occasion *domain.Occasion) error {
	query := `
		INSERT INTO occasions (id, name, emoji, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, occasion.ID, occasion.Name, occasion.Emoji, occasion.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOccasionAlreadyExists
		}
		return fmt.Errorf("failed to create occasion: %w", err)
	}

	return nil
}

func (r *occasionRepository) Update(ctx context.Context, occasion *domain.Occasion) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE occasions SET name = $2, emoji = $3 WHERE id = $1`,
		occasion.ID, occasion.Name, occasion.Emoji,
	)
	if err != nil {
		return fmt.Errorf("failed to update occasion: %w", err)
	}

	return expectOneRow(result, ErrOccasionNotFound)
}

// Delete removes an occasion. Products keep the id in their occasion list;
// it simply stops matching a listed occasion.
func (r *occasionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM occasions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete occasion: %w", err)
	}

	return expectOneRow(result, ErrOccasionNotFound)
}

func (r *occasionRepository) List(ctx context.Context) ([]domain.Occasion, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, emoji, created_at FROM occasions ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list occasions: %w", err)
	}
	defer rows.Close()

	occasions := []domain.Occasion{}
	for rows.Next() {
		var o domain.Occasion
		if err := rows.Scan(&o.ID, &o.Name, &o.Emoji, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan occasion: %w", err)
		}
		occasions = append(occasions, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occasions: %w", err)
	}

	return occasions, nil
}
