package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gift-store/internal/domain"
	"gift-store/internal/mail"
	"gift-store/internal/repository"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	n := 0
	for _, user := range m.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type mockPasswordResetRepository struct {
	resets map[string]*domain.PasswordReset
}

func newMockPasswordResetRepository() *mockPasswordResetRepository {
	return &mockPasswordResetRepository{resets: make(map[string]*domain.PasswordReset)}
}

func (m *mockPasswordResetRepository) Create(ctx context.Context, reset *domain.PasswordReset) error {
	m.resets[reset.Token] = reset
	return nil
}

func (m *mockPasswordResetRepository) Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordReset, error) {
	reset, ok := m.resets[token]
	if !ok || reset.Used {
		return nil, repository.ErrPasswordResetNotFound
	}
	if now.After(reset.ExpiresAt) {
		return nil, repository.ErrPasswordResetExpired
	}
	reset.Used = true
	return reset, nil
}

type mockProductRepository struct {
	products map[string]*domain.Product
	order    []string
}

func newMockProductRepository(products ...domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[string]*domain.Product)}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; exists {
		return repository.ErrProductAlreadyExists
	}
	p := product.Clone()
	m.products[product.ID] = &p
	m.order = append(m.order, product.ID)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	p := product.Clone()
	m.products[product.ID] = &p
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	p, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.products[id].Clone())
	}
	return out, nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	return len(m.products), nil
}

type mockCategoryRepository struct {
	categories map[string]*domain.Category
}

func newMockCategoryRepository(categories ...domain.Category) *mockCategoryRepository {
	m := &mockCategoryRepository{categories: make(map[string]*domain.Category)}
	for i := range categories {
		c := categories[i]
		m.categories[c.ID] = &c
	}
	return m
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if _, exists := m.categories[category.ID]; exists {
		return repository.ErrCategoryAlreadyExists
	}
	c := *category
	m.categories[category.ID] = &c
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, exists := m.categories[category.ID]; !exists {
		return repository.ErrCategoryNotFound
	}
	c := *category
	m.categories[category.ID] = &c
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	c, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

type mockOccasionRepository struct {
	occasions map[string]*domain.Occasion
}

func newMockOccasionRepository(occasions ...domain.Occasion) *mockOccasionRepository {
	m := &mockOccasionRepository{occasions: make(map[string]*domain.Occasion)}
	for i := range occasions {
		o := occasions[i]
		m.occasions[o.ID] = &o
	}
	return m
}

func (m *mockOccasionRepository) Create(ctx context.Context, occasion *domain.Occasion) error {
	if _, exists := m.occasions[occasion.ID]; exists {
		return repository.ErrOccasionAlreadyExists
	}
	o := *occasion
	m.occasions[occasion.ID] = &o
	return nil
}

func (m *mockOccasionRepository) Update(ctx context.Context, occasion *domain.Occasion) error {
	if _, exists := m.occasions[occasion.ID]; !exists {
		return repository.ErrOccasionNotFound
	}
	o := *occasion
	m.occasions[occasion.ID] = &o
	return nil
}

func (m *mockOccasionRepository) Delete(ctx context.Context, id string) error {
	if _, exists := m.occasions[id]; !exists {
		return repository.ErrOccasionNotFound
	}
	delete(m.occasions, id)
	return nil
}

func (m *mockOccasionRepository) List(ctx context.Context) ([]domain.Occasion, error) {
	out := make([]domain.Occasion, 0, len(m.occasions))
	for _, o := range m.occasions {
		out = append(out, *o)
	}
	return out, nil
}

type mockOrderRepository struct {
	orders map[uuid.UUID]*domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	o := *order
	m.orders[order.ID] = &o
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, exists := m.orders[id]
	if !exists {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	o, exists := m.orders[id]
	if !exists {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type mockProfileRepository struct {
	profiles map[uuid.UUID]*domain.Profile
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{profiles: make(map[uuid.UUID]*domain.Profile)}
}

func (m *mockProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, exists := m.profiles[userID]
	if !exists {
		return nil, repository.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	p := *profile
	m.profiles[profile.UserID] = &p
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}
