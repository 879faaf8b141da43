package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gift-store/internal/domain"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this id already exists")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, original_price, image_url, category_id,
	occasion, recipient, rating, reviews, badge, variants, created_at, updated_at`

// Create inserts a new product. Occasion, recipient and variants are stored as JSONB.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	occasion, recipient, variants, err := encodeProductSets(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.OriginalPrice,
		product.ImageURL,
		product.Category,
		string(occasion),
		string(recipient),
		product.Rating,
		product.Reviews,
		product.Badge,
		string(variants),
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces every editable column of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	occasion, recipient, variants, err := encodeProductSets(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, original_price = $5, image_url = $6,
		    category_id = $7, occasion = $8, recipient = $9, rating = $10, reviews = $11,
		    badge = $12, variants = $13
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.OriginalPrice,
		product.ImageURL,
		product.Category,
		string(occasion),
		string(recipient),
		product.Rating,
		product.Reviews,
		product.Badge,
		string(variants),
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List returns the whole catalog, newest first
func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Count returns the number of products
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var occasion, recipient, variants []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.OriginalPrice,
		&product.ImageURL,
		&product.Category,
		&occasion,
		&recipient,
		&product.Rating,
		&product.Reviews,
		&product.Badge,
		&variants,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(occasion, &product.Occasion); err != nil {
		return nil, fmt.Errorf("failed to decode occasion: %w", err)
	}
	if err := json.Unmarshal(recipient, &product.Recipient); err != nil {
		return nil, fmt.Errorf("failed to decode recipient: %w", err)
	}
	if err := json.Unmarshal(variants, &product.Variants); err != nil {
		return nil, fmt.Errorf("failed to decode variants: %w", err)
	}

	return product, nil
}

func encodeProductSets(product *domain.Product) (occasion, recipient, variants []byte, err error) {
	if occasion, err = json.Marshal(nonNil(product.Occasion)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode occasion: %w", err)
	}
	if recipient, err = json.Marshal(nonNil(product.Recipient)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode recipient: %w", err)
	}
	v := product.Variants
	if v == nil {
		v = []domain.VariantGroup{}
	}
	if variants, err = json.Marshal(v); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode variants: %w", err)
	}
	return occasion, recipient, variants, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
