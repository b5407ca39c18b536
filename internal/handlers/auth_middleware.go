package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

// Gin context keys set by AuthMiddleware
const (
	contextUserID   = "user_id"
	contextIdentity = "identity"
	contextClaims   = "claims"
)

const unauthorizedMessage = "Invalid or missing session token"

// AuthMiddleware validates session tokens issued by the auth service
type AuthMiddleware struct {
	auth   services.AuthService
	logger utils.Logger
}

func NewAuthMiddleware(auth services.AuthService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger}
}

// RequireAuth rejects missing and invalid tokens alike with 401
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			am.reject(c)
			return
		}

		claims, err := am.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.GetLogger(c, am.logger).Debug("Rejected session token", "error", err)
			am.reject(c)
			return
		}

		identity := services.IdentityFromClaims(claims)
		c.Set(contextUserID, identity.UserID)
		c.Set(contextIdentity, identity)
		c.Set(contextClaims, claims)

		c.Next()
	}
}

// reject gives no reason so callers cannot tell a missing token from a bad one
func (am *AuthMiddleware) reject(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: unauthorizedMessage})
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// GetIdentityFromContext extracts the caller set by RequireAuth
func GetIdentityFromContext(c *gin.Context) (services.Identity, error) {
	value, exists := c.Get(contextIdentity)
	if !exists {
		return services.Identity{}, errors.New("identity not found in context")
	}

	identity, ok := value.(services.Identity)
	if !ok {
		return services.Identity{}, errors.New("invalid identity type in context")
	}
	return identity, nil
}
