package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/logger"
)

// --- Central Error Handling Middleware/Function ---

// HandleAPIError maps err onto the error taxonomy and writes the response.
// Domain errors carry their reason code; anything unclassified is a 500.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorDetailFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

func errorDetailFor(err error) (int, *dto.ErrorDetail) {
	// Authentication errors are not part of the domain taxonomy
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	}

	var status int
	var detail *dto.ErrorDetail
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status, detail = http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed")
	case apperrors.KindConflict:
		status, detail = http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, "Conflict")
	case apperrors.KindNotFound:
		status, detail = http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
	case apperrors.KindForbidden:
		status, detail = http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")
	case apperrors.KindUpstream:
		status, detail = http.StatusBadGateway, dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "External service error")
	default:
		// Handle unknown errors
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}

	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		detail.Message = custom.Message
		detail = detail.WithReason(custom.Code)
		if field, ok := custom.Details["field"].(string); ok {
			detail = detail.WithField(field)
		}
		if len(custom.Details) > 0 {
			detail = detail.WithDetails(custom.Details)
		}
	}
	return status, detail
}

// Recovery turns panics into the standard 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
	})
}
