package middleware

import (
	"errors"
	"net/http"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatusFor maps a wire error code to its HTTP status
func StatusFor(code dto.ErrorCode) int {
	switch code {
	case dto.ErrorCodeUnauthorized, dto.ErrorCodeInvalidToken, dto.ErrorCodeExpiredToken, dto.ErrorCodeTokenNotFound:
		return http.StatusUnauthorized
	case dto.ErrorCodePendingApproval, dto.ErrorCodeForbidden:
		return http.StatusForbidden
	case dto.ErrorCodeResourceNotFound:
		return http.StatusNotFound
	case dto.ErrorCodeConflict, dto.ErrorCodeDuplicateRequest, dto.ErrorCodeAlreadyConnected, dto.ErrorCodeAlreadyResponded:
		return http.StatusConflict
	case dto.ErrorCodeSelfRequest, dto.ErrorCodeValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleAPIError writes the error envelope for err and aborts the request
func HandleAPIError(c *gin.Context, err error) {
	code := dto.ErrorCodeFor(err)
	status := StatusFor(code)

	detail := dto.NewErrorDetail(code, dto.PublicMessage(err))
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Details != nil && status < http.StatusInternalServerError {
		detail = detail.WithDetails(custom.Details)
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		detail = detail.WithSeverity(dto.ErrorSeverityCritical)
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
