package transport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"gift-store/internal/catalog"
	"gift-store/internal/domain"
	"gift-store/internal/middleware"
	"gift-store/internal/service"
)

const (
	defaultPerPage     = 24
	maxPerPage         = 100
	defaultSearchLimit = 8
	maxSearchLimit     = 50
)

// ProductPage is one page of the shop listing
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

// CatalogHandler serves the public catalog
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)
	r.Get("/api/search", h.Search)
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/occasions", h.ListOccasions)
}

// queryInt parses a lenient integer query parameter, falling back to def
// when it is missing, malformed or below min.
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil || v < min {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// ListProducts filters by category, occasion, recipient and q, then pages
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := catalog.Criteria{
		Category:  q.Get("category"),
		Occasion:  q.Get("occasion"),
		Recipient: q.Get("recipient"),
		Query:     q.Get("q"),
	}

	products, err := h.catalogService.ListProducts(r.Context(), criteria)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to list products")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}

	page := queryInt(r, "page", 1, 1, 1<<20)
	perPage := queryInt(r, "per_page", defaultPerPage, 1, maxPerPage)

	start := (page - 1) * perPage
	if start > len(products) {
		start = len(products)
	}
	end := start + perPage
	if end > len(products) {
		end = len(products)
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductPage{
		Products: products[start:end],
		Total:    len(products),
		Page:     page,
		PerPage:  perPage,
	})
}

// GetProduct returns one product or 404
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Search is the type-ahead endpoint
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultSearchLimit, 1, maxSearchLimit)

	products, err := h.catalogService.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to search products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) ListOccasions(w http.ResponseWriter, r *http.Request) {
	occasions, err := h.catalogService.ListOccasions(r.Context())
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to list occasions")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, occasions)
}
