package transport

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gift-store/internal/middleware"
	"gift-store/internal/repository"
	"gift-store/internal/service"
	"gift-store/internal/wishlist"
)

// AuthRedirect is where clients send users who must sign in.
const AuthRedirect = "/auth"

// decodeRequest decodes and validates the JSON body into v. It writes the
// error response and returns false when the body is unusable.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	err := middleware.DecodeAndValidate(w, r, v)
	if err == nil {
		return true
	}

	logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
	if middleware.IsValidationError(err) {
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return false
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	return false
}

type errorMapping struct {
	target  error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{repository.ErrProductNotFound, http.StatusNotFound, "product not found"},
	{repository.ErrCategoryNotFound, http.StatusNotFound, "category not found"},
	{repository.ErrOccasionNotFound, http.StatusNotFound, "occasion not found"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "order not found"},
	{repository.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{repository.ErrUserAlreadyExists, http.StatusConflict, "user with this email already exists"},
	{repository.ErrProductAlreadyExists, http.StatusConflict, "product with this id already exists"},
	{repository.ErrCategoryAlreadyExists, http.StatusConflict, "category with this id already exists"},
	{repository.ErrOccasionAlreadyExists, http.StatusConflict, "occasion with this id already exists"},
	{repository.ErrReferenced, http.StatusConflict, "still referenced by products"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "token expired"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid token"},
	{service.ErrInvalidTransition, http.StatusConflict, "order cannot move to that status"},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file too large"},
	{service.ErrImageTooLarge, http.StatusRequestEntityTooLarge, "image dimensions too large"},
	{service.ErrUnsupportedImage, http.StatusUnsupportedMediaType, "only JPEG and PNG images are allowed"},
}

// respondWithServiceError maps domain errors to HTTP responses. Unknown
// errors are logged and reported as 500 with fallback as the message.
func respondWithServiceError(w http.ResponseWriter, err error, logger *zap.Logger, fallback string) {
	var inputErr *service.InputError
	if errors.As(err, &inputErr) {
		logger.Debug("Business validation failed", zap.Error(err))
		validationErrors := make([]middleware.ValidationError, len(inputErr.Fields))
		for i, f := range inputErr.Fields {
			validationErrors[i] = middleware.ValidationError{Field: f.Field, Message: f.Message}
		}
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	if errors.Is(err, service.ErrAuthRequired) {
		logger.Debug("Sign in required", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusUnauthorized, "sign in required",
			map[string]interface{}{"redirect": AuthRedirect})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			logger.Debug("Request failed", zap.Error(err))
			middleware.RespondWithError(w, m.status, m.message)
			return
		}
	}

	if errors.Is(err, wishlist.ErrSyncFailed) {
		logger.Warn("Wishlist sync failed", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, "could not save wishlist change",
			map[string]interface{}{"retry": true})
		return
	}

	logger.Error(fallback, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
}

// requireUserID returns the signed-in user's id or writes 401.
func requireUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
