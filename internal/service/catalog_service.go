package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"gift-store/internal/catalog"
	"gift-store/internal/domain"
	"gift-store/internal/repository"
)

// ProductInput is the editable part of a product
type ProductInput struct {
	Name          string                `json:"name" validate:"required,max=255"`
	Description   string                `json:"description"`
	Price         int64                 `json:"price" validate:"required,gt=0"`
	OriginalPrice *int64                `json:"original_price" validate:"omitempty,gt=0"`
	ImageURL      string                `json:"image" validate:"max=1024"`
	Category      string                `json:"category" validate:"required"`
	Occasion      []string              `json:"occasion"`
	Recipient     []string              `json:"recipient"`
	Rating        float64               `json:"rating"`
	Reviews       int                   `json:"reviews" validate:"gte=0"`
	Badge         *string               `json:"badge" validate:"omitempty,max=50"`
	Variants      []domain.VariantGroup `json:"variants"`
}

// CategoryInput creates or renames a category. ID defaults to the slug of Name.
type CategoryInput struct {
	ID   string `json:"id" validate:"omitempty,max=100"`
	Name string `json:"name" validate:"required,max=100"`
	Icon string `json:"icon" validate:"max=50"`
}

// OccasionInput creates or renames an occasion. ID defaults to the slug of Name.
type OccasionInput struct {
	ID    string `json:"id" validate:"omitempty,max=100"`
	Name  string `json:"name" validate:"required,max=100"`
	Emoji string `json:"emoji" validate:"max=16"`
}

// Stats are the admin dashboard counters
type Stats struct {
	Products   int `json:"products"`
	Categories int `json:"categories"`
	Occasions  int `json:"occasions"`
	Customers  int `json:"customers"`
}

// CatalogService reads and administers products, categories and occasions
type CatalogService interface {
	ListProducts(ctx context.Context, criteria catalog.Criteria) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListOccasions(ctx context.Context) ([]domain.Occasion, error)

	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, input CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateOccasion(ctx context.Context, input OccasionInput) (*domain.Occasion, error)
	UpdateOccasion(ctx context.Context, id string, input OccasionInput) (*domain.Occasion, error)
	DeleteOccasion(ctx context.Context, id string) error

	ExportProductsCSV(ctx context.Context, w io.Writer) error
	Stats(ctx context.Context) (*Stats, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	occasionRepo repository.OccasionRepository
	userRepo     repository.UserRepository
	now          func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	occasionRepo repository.OccasionRepository,
	userRepo repository.UserRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		occasionRepo: occasionRepo,
		userRepo:     userRepo,
		now:          time.Now,
	}
}

// ListProducts returns the catalog newest first, narrowed by criteria
func (s *catalogService) ListProducts(ctx context.Context, criteria catalog.Criteria) ([]domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return catalog.Filter(products, criteria), nil
}

// SearchProducts is the type-ahead used by the search dialog
func (s *catalogService) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.Product{}, nil
	}
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return catalog.Search(products, query, limit), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ListCategories returns categories by name, each with its product count
func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	counts := catalog.CountByCategory(products)
	for i := range categories {
		categories[i].Count = counts[categories[i].ID]
	}
	return categories, nil
}

// ListOccasions returns occasions by name, each with its product count
func (s *catalogService) ListOccasions(ctx context.Context) ([]domain.Occasion, error) {
	occasions, err := s.occasionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list occasions: %w", err)
	}
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	counts := catalog.CountByOccasion(products)
	for i := range occasions {
		occasions[i].Count = counts[occasions[i].ID]
	}
	return occasions, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProduct(&input); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	applyProductInput(product, input)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	if err := validateProduct(&input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProductInput(product, input)

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.productRepo.Delete(ctx, id)
}

func (s *catalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	id, err := resolveSlugID(input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{ID: id, Name: strings.TrimSpace(input.Name), Icon: input.Icon, CreatedAt: s.now()}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, &InputError{Fields: []FieldError{{Field: "name", Message: "This field is required"}}}
	}

	category := &domain.Category{ID: id, Name: strings.TrimSpace(input.Name), Icon: input.Icon}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return s.categoryRepo.FindByID(ctx, id)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *catalogService) CreateOccasion(ctx context.Context, input OccasionInput) (*domain.Occasion, error) {
	id, err := resolveSlugID(input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	occasion := &domain.Occasion{ID: id, Name: strings.TrimSpace(input.Name), Emoji: input.Emoji, CreatedAt: s.now()}
	if err := s.occasionRepo.Create(ctx, occasion); err != nil {
		return nil, err
	}
	return occasion, nil
}

func (s *catalogService) UpdateOccasion(ctx context.Context, id string, input OccasionInput) (*domain.Occasion, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, &InputError{Fields: []FieldError{{Field: "name", Message: "This field is required"}}}
	}

	occasion := &domain.Occasion{ID: id, Name: strings.TrimSpace(input.Name), Emoji: input.Emoji}
	if err := s.occasionRepo.Update(ctx, occasion); err != nil {
		return nil, err
	}
	return occasion, nil
}

func (s *catalogService) DeleteOccasion(ctx context.Context, id string) error {
	return s.occasionRepo.Delete(ctx, id)
}

type productCSVRow struct {
	ID            string  `csv:"id"`
	Name          string  `csv:"name"`
	Category      string  `csv:"category"`
	Price         int64   `csv:"price"`
	OriginalPrice string  `csv:"original_price"`
	Occasion      string  `csv:"occasion"`
	Recipient     string  `csv:"recipient"`
	Rating        float64 `csv:"rating"`
	Reviews       int     `csv:"reviews"`
	Badge         string  `csv:"badge"`
	Image         string  `csv:"image"`
	CreatedAt     string  `csv:"created_at"`
}

// ExportProductsCSV writes one row per product, newest first
func (s *catalogService) ExportProductsCSV(ctx context.Context, w io.Writer) error {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	rows := make([]*productCSVRow, 0, len(products))
	for _, p := range products {
		row := &productCSVRow{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Occasion:  strings.Join(p.Occasion, ";"),
			Recipient: strings.Join(p.Recipient, ";"),
			Rating:    p.Rating,
			Reviews:   p.Reviews,
			Image:     p.ImageURL,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if p.OriginalPrice != nil {
			row.OriginalPrice = fmt.Sprint(*p.OriginalPrice)
		}
		if p.Badge != nil {
			row.Badge = *p.Badge
		}
		rows = append(rows, row)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (s *catalogService) Stats(ctx context.Context) (*Stats, error) {
	products, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	occasions, err := s.occasionRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.userRepo.CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Products:   products,
		Categories: len(categories),
		Occasions:  len(occasions),
		Customers:  customers,
	}, nil
}

// validateProduct checks required fields and normalizes defaults in place.
func validateProduct(input *ProductInput) error {
	verr := &InputError{}

	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)

	if input.Name == "" {
		verr.add("name", "This field is required")
	}
	if input.Price <= 0 {
		verr.add("price", "Value must be greater than 0")
	}
	if input.Category == "" {
		verr.add("category", "This field is required")
	}
	if input.Reviews < 0 {
		verr.add("reviews", "Value must be greater than or equal to 0")
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	if strings.TrimSpace(input.ImageURL) == "" {
		input.ImageURL = domain.PlaceholderImage
	}
	switch {
	case input.Rating < 0:
		input.Rating = 0
	case input.Rating > 5:
		input.Rating = 5
	}
	if input.Badge != nil && strings.TrimSpace(*input.Badge) == "" {
		input.Badge = nil
	}
	return nil
}

func applyProductInput(p *domain.Product, input ProductInput) {
	p.Name = input.Name
	p.Description = input.Description
	p.Price = input.Price
	p.OriginalPrice = input.OriginalPrice
	p.ImageURL = input.ImageURL
	p.Category = input.Category
	p.Occasion = input.Occasion
	p.Recipient = input.Recipient
	p.Rating = input.Rating
	p.Reviews = input.Reviews
	p.Badge = input.Badge
	p.Variants = input.Variants
}

func resolveSlugID(id, name string) (string, error) {
	verr := &InputError{}
	if strings.TrimSpace(name) == "" {
		verr.add("name", "This field is required")
		return "", verr
	}

	if id = strings.TrimSpace(id); id == "" {
		id = catalog.Slug(name)
	}
	if id == "" {
		verr.add("id", "Could not derive an id from the name")
		return "", verr
	}
	return id, nil
}
