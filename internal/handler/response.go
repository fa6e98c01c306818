package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"docanalyser/internal/domain"
	"docanalyser/internal/llm"
	"docanalyser/internal/middleware"
	"docanalyser/internal/service"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var rateErr *llm.RateLimitError
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrNoSupportedFiles):
		return http.StatusBadRequest, "NO_SUPPORTED_FILES", "no supported files; allowed: png, jpg, jpeg, webp, bmp, tif, tiff, pdf"
	case errors.Is(err, domain.ErrUnsupportedMimeType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "upload exceeds maximum allowed size"
	case errors.Is(err, service.ErrKeyUsageUnsupported):
		return http.StatusNotImplemented, "KEY_USAGE_UNSUPPORTED", "key usage is not available for this provider"
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, "RATE_LIMITED", "llm provider rate limit reached; retry later"
	case errors.As(err, &apiErr), errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "UPSTREAM_ERROR", "llm provider request failed"
	case errors.Is(err, domain.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", "llm provider api key is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "request timed out"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", middleware.GetRequestID(c), "status", status, "error", err)
	}
	RespondError(c, status, code, msg)
}
