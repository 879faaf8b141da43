package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gift-store/internal/domain"
	"gift-store/internal/middleware"
	"gift-store/internal/service"
)

// multipartOverhead is the slack allowed above the image limit for form headers.
const multipartOverhead = 1 << 20

// UpdateOrderStatusRequest moves an order along its lifecycle
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
}

// AdminHandler serves the catalog back office
type AdminHandler struct {
	catalogService service.CatalogService
	mediaService   service.MediaService
	orderService   service.OrderService
	maxUploadSize  int64
	logger         *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	catalogService service.CatalogService,
	mediaService service.MediaService,
	orderService service.OrderService,
	maxUploadSize int64,
	logger *zap.Logger,
) *AdminHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = service.DefaultMaxUploadSize
	}
	return &AdminHandler{
		catalogService: catalogService,
		mediaService:   mediaService,
		orderService:   orderService,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// AdminGates are the per-area authorization middlewares
type AdminGates struct {
	Catalog func(http.Handler) http.Handler
	Orders  func(http.Handler) http.Handler
	Media   func(http.Handler) http.Handler
}

// RegisterRoutes registers the /api/admin routes behind authMiddleware
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, gates AdminGates) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(gates.Catalog)

			r.Get("/stats", h.GetStats)

			r.Post("/products", h.CreateProduct)
			r.Get("/products/export", h.ExportProducts)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)

			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{id}", h.UpdateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)

			r.Post("/occasions", h.CreateOccasion)
			r.Put("/occasions/{id}", h.UpdateOccasion)
			r.Delete("/occasions/{id}", h.DeleteOccasion)
		})

		r.With(gates.Media).Post("/uploads", h.UploadImage)
		r.With(gates.Orders).Patch("/orders/{id}/status", h.UpdateOrderStatus)
	})
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalogService.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to load stats")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, h.logger, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ExportProducts streams the catalog as a CSV attachment
func (h *AdminHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	filename := "products-" + time.Now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.catalogService.ExportProductsCSV(r.Context(), w); err != nil {
		// Headers may already be flushed; the log is all that is left.
		h.logger.Error("Failed to export products", zap.Error(err))
	}
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to update category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// DeleteCategory refuses with 409 while products still use the category
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, err, h.logger, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreateOccasion(w http.ResponseWriter, r *http.Request) {
	var req service.OccasionInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	occasion, err := h.catalogService.CreateOccasion(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to create occasion")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, occasion)
}

func (h *AdminHandler) UpdateOccasion(w http.ResponseWriter, r *http.Request) {
	var req service.OccasionInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	occasion, err := h.catalogService.UpdateOccasion(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to update occasion")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, occasion)
}

func (h *AdminHandler) DeleteOccasion(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteOccasion(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, err, h.logger, "failed to delete occasion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart "file" field and returns the stored URL
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := h.mediaService.UploadProductImage(r.Context(), file)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to upload image")
		return
	}

	h.logger.Info("Image uploaded",
		zap.String("filename", header.Filename),
		zap.String("key", result.Key),
		zap.Int64("size", result.Size),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to update order status")
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
