package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeUnsupportedMedia ErrorCode = "unsupported_media_type"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
	errCodeUpstreamError ErrorCode = "upstream_error"
	errCodeTimeout       ErrorCode = "confirmation_timeout"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message, details...)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps a workflow error to its HTTP status. Every handler
// goes through here so the error-to-status mapping stays uniform.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAssetNotFound):
		respondNotFound(c, "Asset not found", err.Error())
	case errors.Is(err, domain.ErrTokenNotFound):
		respondNotFound(c, "Token not found", err.Error())
	case errors.Is(err, domain.ErrCertificateNotFound):
		respondNotFound(c, "Certificate not found", err.Error())
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		respondWithError(c, http.StatusUnsupportedMediaType, errCodeUnsupportedMedia, "Unsupported media type", err.Error())
	case errors.Is(err, domain.ErrConfirmationTimeout):
		logger.Error(err)
		respondWithError(c, http.StatusGatewayTimeout, errCodeTimeout, "Transaction confirmation timed out", err.Error())
	case errors.Is(err, domain.ErrClassificationFailed),
		errors.Is(err, domain.ErrChainSubmission),
		errors.Is(err, domain.ErrContractNotDeployed):
		logger.Error(err)
		respondWithError(c, http.StatusBadGateway, errCodeUpstreamError, "Upstream service failure", err.Error())
	default:
		respondInternalError(c, err, "Internal server error")
	}
}
