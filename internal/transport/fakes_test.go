package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gift-store/internal/auth"
	"gift-store/internal/cart"
	"gift-store/internal/catalog"
	"gift-store/internal/domain"
	"gift-store/internal/middleware"
	"gift-store/internal/repository"
	"gift-store/internal/service"
	"gift-store/internal/storage"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "ana@example.com",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// newJSONRequest builds a request with body marshalled as JSON. A nil body sends none.
func newJSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	var body middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func validationFields(detail middleware.ErrorDetail) []string {
	raw, _ := detail.Details["validation_errors"].([]interface{})
	var fields []string
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			if f, ok := m["field"].(string); ok {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// fakeUserService keeps accounts in memory and issues opaque tokens.
type fakeUserService struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	passwords map[string]string
	refresh   map[string]uuid.UUID
	resets    []string
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{
		users:     make(map[string]*domain.User),
		passwords: make(map[string]string),
		refresh:   make(map[string]uuid.UUID),
	}
}

func (f *fakeUserService) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, repository.ErrUserAlreadyExists
	}
	user := &domain.User{ID: uuid.New(), Email: email, FullName: fullName, Role: domain.RoleUser}
	f.users[email] = user
	f.passwords[email] = password
	return user, nil
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return "", "", nil, service.ErrInvalidCredentials
	}
	refresh := uuid.NewString()
	f.refresh[refresh] = user.ID
	return "access-" + user.ID.String(), refresh, user, nil
}

func (f *fakeUserService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, refreshToken)
	return nil
}

func (f *fakeUserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refresh[refreshToken]
	if !ok {
		return "", service.ErrInvalidToken
	}
	return "access-" + userID.String(), nil
}

func (f *fakeUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (f *fakeUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserService) RequestPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeUserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token != "valid-token" {
		return service.ErrInvalidToken
	}
	return nil
}

func (f *fakeUserService) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	return nil
}

// fakeCatalogService serves a fixed product list through the real filter.
type fakeCatalogService struct {
	mu         sync.Mutex
	products   []domain.Product
	categories []domain.Category
	occasions  []domain.Occasion
}

func (f *fakeCatalogService) ListProducts(ctx context.Context, criteria catalog.Criteria) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return catalog.Filter(f.products, criteria), nil
}

func (f *fakeCatalogService) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return catalog.Search(f.products, query, limit), nil
}

func (f *fakeCatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalogService) ListOccasions(ctx context.Context) ([]domain.Occasion, error) {
	return f.occasions, nil
}

func (f *fakeCatalogService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	if input.Price <= 0 {
		return nil, &service.InputError{Fields: []service.FieldError{{Field: "price", Message: "must be positive"}}}
	}
	product := domain.Product{ID: uuid.NewString(), Name: input.Name, Price: input.Price, Category: input.Category}
	f.mu.Lock()
	f.products = append(f.products, product)
	f.mu.Unlock()
	return &product, nil
}

func (f *fakeCatalogService) UpdateProduct(ctx context.Context, id string, input service.ProductInput) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Name = input.Name
			f.products[i].Price = input.Price
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeCatalogService) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (f *fakeCatalogService) CreateCategory(ctx context.Context, input service.CategoryInput) (*domain.Category, error) {
	return &domain.Category{ID: catalog.Slug(input.Name), Name: input.Name, Icon: input.Icon}, nil
}

func (f *fakeCatalogService) UpdateCategory(ctx context.Context, id string, input service.CategoryInput) (*domain.Category, error) {
	return &domain.Category{ID: id, Name: input.Name, Icon: input.Icon}, nil
}

func (f *fakeCatalogService) DeleteCategory(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Category == id {
			return repository.ErrReferenced
		}
	}
	return nil
}

func (f *fakeCatalogService) CreateOccasion(ctx context.Context, input service.OccasionInput) (*domain.Occasion, error) {
	return &domain.Occasion{ID: catalog.Slug(input.Name), Name: input.Name, Emoji: input.Emoji}, nil
}

func (f *fakeCatalogService) UpdateOccasion(ctx context.Context, id string, input service.OccasionInput) (*domain.Occasion, error) {
	return &domain.Occasion{ID: id, Name: input.Name, Emoji: input.Emoji}, nil
}

func (f *fakeCatalogService) DeleteOccasion(ctx context.Context, id string) error {
	return repository.ErrOccasionNotFound
}

type exportRow struct {
	ID    string `csv:"id"`
	Name  string `csv:"name"`
	Price int64  `csv:"price"`
}

func (f *fakeCatalogService) ExportProductsCSV(ctx context.Context, w io.Writer) error {
	f.mu.Lock()
	rows := make([]exportRow, len(f.products))
	for i, p := range f.products {
		rows[i] = exportRow{ID: p.ID, Name: p.Name, Price: p.Price}
	}
	f.mu.Unlock()
	return gocsv.Marshal(rows, w)
}

func (f *fakeCatalogService) Stats(ctx context.Context) (*service.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &service.Stats{Products: len(f.products), Categories: len(f.categories), Occasions: len(f.occasions)}, nil
}

// fakeCartService adds products from a fixed catalog without variant checks.
type fakeCartService struct {
	products map[string]domain.Product
}

func (f *fakeCartService) AddItem(ctx context.Context, store *cart.Store, input service.AddToCartInput) error {
	product, ok := f.products[input.ProductID]
	if !ok {
		return repository.ErrProductNotFound
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	store.AddItem(product, quantity, input.Variants, input.CustomMessage)
	return nil
}

// fakeOrderService requires a signed-in session and clears the cart on checkout.
type fakeOrderService struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
}

func newFakeOrderService() *fakeOrderService {
	return &fakeOrderService{orders: make(map[uuid.UUID]domain.Order)}
}

func (f *fakeOrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]service.OrderView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []service.OrderView
	for _, o := range f.orders {
		if o.UserID == userID {
			views = append(views, service.NewOrderView(o))
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views, nil
}

func (f *fakeOrderService) Checkout(ctx context.Context, session auth.Session, store *cart.Store) (*service.OrderView, error) {
	if !session.Authenticated() {
		return nil, service.ErrAuthRequired
	}
	snap := store.Snapshot()
	if len(snap.Lines) == 0 {
		return nil, &service.InputError{Fields: []service.FieldError{{Field: "items", Message: "cart is empty"}}}
	}
	order := domain.Order{
		ID:        uuid.New(),
		UserID:    session.User.UserID,
		Status:    domain.OrderStatusPending,
		Total:     snap.TotalPrice,
		CreatedAt: time.Now(),
	}
	store.ClearIfUnchanged(snap.Version)

	f.mu.Lock()
	f.orders[order.ID] = order
	f.mu.Unlock()

	view := service.NewOrderView(order)
	return &view, nil
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*service.OrderView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if status == domain.OrderStatusPending {
		return nil, service.ErrInvalidTransition
	}
	order.Status = status
	f.orders[orderID] = order
	view := service.NewOrderView(order)
	return &view, nil
}

// fakeWishlistService returns toggleErr when set.
type fakeWishlistService struct {
	mu        sync.Mutex
	items     map[uuid.UUID]map[string]bool
	toggleErr error
}

func newFakeWishlistService() *fakeWishlistService {
	return &fakeWishlistService{items: make(map[uuid.UUID]map[string]bool)}
}

func (f *fakeWishlistService) Get(ctx context.Context, userID uuid.UUID) (*service.WishlistView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	view := &service.WishlistView{ProductIDs: []string{}, Products: []domain.Product{}}
	for id := range f.items[userID] {
		view.ProductIDs = append(view.ProductIDs, id)
	}
	sort.Strings(view.ProductIDs)
	return view, nil
}

func (f *fakeWishlistService) Toggle(ctx context.Context, userID uuid.UUID, productID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	if f.items[userID] == nil {
		f.items[userID] = make(map[string]bool)
	}
	if f.items[userID][productID] {
		delete(f.items[userID], productID)
		return false, nil
	}
	f.items[userID][productID] = true
	return true, nil
}

type fakeProfileService struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]domain.Profile
}

func (f *fakeProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return &domain.Profile{UserID: userID}, nil
	}
	return &p, nil
}

func (f *fakeProfileService) Save(ctx context.Context, userID uuid.UUID, input service.ProfileInput) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profiles == nil {
		f.profiles = make(map[uuid.UUID]domain.Profile)
	}
	p := domain.Profile{UserID: userID, FullName: input.FullName, Phone: input.Phone, UpdatedAt: time.Now()}
	f.profiles[userID] = p
	return &p, nil
}

// fakeMediaService stores uploads in a MemoryStorage without decoding them.
// A payload starting with hugeImageMarker is treated as an oversized image.
var hugeImageMarker = []byte("\xff\xd8\xff\xe0huge")

type fakeMediaService struct {
	store *storage.MemoryStorage
}

func (f *fakeMediaService) UploadProductImage(ctx context.Context, data io.Reader) (*storage.UploadResult, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(raw, hugeImageMarker) {
		return nil, service.ErrImageTooLarge
	}
	if !bytes.HasPrefix(raw, []byte("\xff\xd8\xff")) {
		return nil, service.ErrUnsupportedImage
	}
	return f.store.Upload(ctx, &storage.UploadInput{
		Key:         "products/" + uuid.NewString() + ".jpg",
		Data:        bytes.NewReader(raw),
		ContentType: "image/jpeg",
	})
}
