package middleware

import (
	"context"
	"net/http"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const principalKey = "principal"

// PrincipalResolver turns a bearer token into an authenticated principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (models.Principal, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	resolver PrincipalResolver
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver PrincipalResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// JWTAuth authenticates the bearer token and stores the principal on the context
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Authorization header missing or malformed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		principal, err := m.resolver.ResolvePrincipal(c.Request.Context(), tokenString)
		if err != nil {
			HandleAPIError(c, err)
			return
		}

		c.Set(principalKey, principal)
		ctx := zerolog.Ctx(c.Request.Context()).With().
			Str("principalID", principal.ID.String()).
			Str("kind", string(principal.Kind)).
			Logger().WithContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRequired rejects principals that did not authenticate as an admin
func (m *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			HandleAPIError(c, apperrors.NewAuthenticationError("Authentication required", nil))
			return
		}
		if !principal.IsAdmin() {
			HandleAPIError(c, apperrors.NewForbiddenError("Admin access required"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by JWTAuth
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}
