package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "userID"
	ContextEmail     = "email"
	ContextAPIClient = "apiClient"
)

// APIKeyHeader authenticates trusted server-side callers
const APIKeyHeader = "X-API-Key"

// AuthMiddleware for authentication
type AuthMiddleware struct {
	jwtService *auth.JWTService
	apiKey     string
}

// NewAuthMiddleware creates a new AuthMiddleware. An empty apiKey disables key auth.
func NewAuthMiddleware(jwtService *auth.JWTService, apiKey string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		apiKey:     apiKey,
	}
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c) {
			c.Next()
		}
	}
}

// APIKeyOrJWT accepts either the shared API key or a user token.
func (m *AuthMiddleware) APIKeyOrJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(APIKeyHeader); key != "" {
			if m.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1 {
				errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
				errorDetail = errorDetail.WithDetails("Invalid API key")
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
				return
			}
			c.Set(ContextAPIClient, true)
			c.Next()
			return
		}
		if m.authenticate(c) {
			c.Next()
		}
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")

	// Browsers cannot set headers on websocket upgrades
	if authHeader == "" {
		authHeader = c.Query("token")
	}

	if authHeader == "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		errorDetail = errorDetail.WithDetails("Authorization header missing")
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return false
	}

	tokenString, err := auth.ExtractBearerToken(strings.Trim(authHeader, "\"'"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		errorDetail = errorDetail.WithDetails("Invalid token format")
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return false
	}

	userID, claims, err := m.jwtService.ValidateAndExtractUserID(tokenString)
	if err != nil {
		errorCode := dto.ErrorCodeInvalidToken
		errorDetails := "Invalid token"
		if errors.Is(err, apperrors.ErrTokenExpired) {
			errorCode = dto.ErrorCodeExpiredToken
			errorDetails = "Token has expired"
		}

		errorDetail := dto.NewErrorDetail(errorCode, "Authentication failed")
		errorDetail = errorDetail.WithDetails(errorDetails)
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return false
	}

	// Add user information to context if token is valid
	c.Set(ContextUserID, userID)
	c.Set(ContextEmail, claims.Email)
	return true
}

// CurrentUserID returns the authenticated user, if any.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// IsAPIClient reports whether the request authenticated with the API key.
func IsAPIClient(c *gin.Context) bool {
	return c.GetBool(ContextAPIClient)
}
