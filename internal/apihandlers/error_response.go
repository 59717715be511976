package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autopress/internal/models"
	"autopress/internal/store"
)

// APIError defines standard error response
// Example: { "error": { "code": "bad_request", "message": "Invalid ID" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// JSONError sends a structured error response
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.JSON(status, errorResponse{Error: APIError{Code: code, Message: msg}})
}

// Convenience wrappers
func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, "bad_request", msg)
}

func NotFound(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusNotFound, "not_found", msg)
}

func Internal(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusInternalServerError, "internal_error", msg)
}

func Unavailable(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusServiceUnavailable, "unavailable", msg)
}

// FromError maps pipeline errors onto statuses and codes.
func FromError(ctx *gin.Context, err error) {
	var (
		partial *models.PartialTaxonomyFailure
		authErr *models.AuthError
		depErr  *models.DependencyError
		genErr  *models.GenerationError
		valErr  *models.ValidationError
		trErr   *models.TransportError
	)
	switch {
	case errors.As(err, &partial):
		JSONError(ctx, http.StatusBadGateway, "taxonomy_failed", err.Error())
	case errors.As(err, &authErr):
		JSONError(ctx, http.StatusBadGateway, "cms_auth_failed", err.Error())
	case errors.As(err, &depErr):
		JSONError(ctx, http.StatusBadGateway, "dependency_unavailable", err.Error())
	case errors.As(err, &genErr):
		JSONError(ctx, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.As(err, &valErr):
		JSONError(ctx, http.StatusUnprocessableEntity, "cms_rejected", err.Error())
	case errors.As(err, &trErr):
		JSONError(ctx, http.StatusGatewayTimeout, "cms_unreachable", err.Error())
	case errors.Is(err, models.ErrValidation):
		BadRequest(ctx, err.Error())
	case errors.Is(err, models.ErrNotFound), errors.Is(err, store.ErrNotFound):
		NotFound(ctx, err.Error())
	case errors.Is(err, store.ErrDisabled):
		Unavailable(ctx, err.Error())
	default:
		Internal(ctx, err.Error())
	}
}
