package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
)

// HTTP status codes as constants for consistency
const (
	StatusOK                  = http.StatusOK
	StatusFound               = http.StatusFound
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusConflict            = http.StatusConflict
	StatusInternalServerError = http.StatusInternalServerError
)

// Common error messages
const (
	ErrInvalidInput      = "Invalid input format"
	ErrInternalServer    = "Internal server error"
	ErrMissingSession    = "Missing or invalid session"
	ErrSyncFailed        = "Sync failed"
	ErrProviderAPI       = "Provider API error"
	ErrMissingCredential = "Provider credentials are not configured"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...string) {
	response := model.ErrorResponse{Error: message}
	if len(details) > 0 {
		response.Details = details[0]
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, StatusBadRequest, message, details...)
}

// respondUnauthorized sends a 401 Unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	respondWithError(c, StatusUnauthorized, message)
}

// respondConflict sends a 409 Conflict response
func respondConflict(c *gin.Context, message string) {
	respondWithError(c, StatusConflict, message)
}

// respondInternalServerError sends a 500 Internal Server Error response
func respondInternalServerError(c *gin.Context, message string, details ...string) {
	respondWithError(c, StatusInternalServerError, message, details...)
}

// respondOK sends a 200 OK response with data
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(StatusOK, data)
}

// respondServiceError maps a domain error onto its status code
func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	var configErr *domain.ConfigurationError
	var apiErr *domain.ProviderAPIError

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		respondUnauthorized(c, ErrMissingSession)
	case errors.Is(err, domain.ErrUnsupportedProvider),
		errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrReauthorizationRequired):
		respondBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		respondConflict(c, err.Error())
	case errors.As(err, &configErr):
		respondInternalServerError(c, ErrMissingCredential, configErr.Setting)
	case errors.As(err, &apiErr):
		respondInternalServerError(c, ErrProviderAPI, apiErr.Error())
	default:
		respondInternalServerError(c, ErrInternalServer, err.Error())
	}
}
