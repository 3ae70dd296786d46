package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/policy"
)

// Context keys set by the auth middleware.
const (
	ActorKey  = "actor"
	UserIDKey = "userID"
)

// ErrorResponse mirrors api.ErrorResponse without importing the api package.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ActorResolver turns an ID token into the actor the request runs as.
type ActorResolver interface {
	Resolve(ctx context.Context, idToken string) (policy.Actor, error)
}

// AuthMiddleware provides Gin middleware for bearer token authentication.
type AuthMiddleware struct {
	resolver ActorResolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(resolver ActorResolver, logger *zap.Logger) *AuthMiddleware {
	if resolver == nil {
		log.Fatal("CRITICAL_ERROR: actor resolver is not initialized for AuthMiddleware.")
	}
	return &AuthMiddleware{resolver: resolver, logger: logger}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// present is false when the header is absent.
func bearerToken(c *gin.Context) (token string, present bool, ok bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false, false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", true, false
	}
	return parts[1], true, true
}

func (m *AuthMiddleware) authenticate(c *gin.Context, token string) bool {
	actor, err := m.resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		m.logger.Debug("Rejected authentication token", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
		return false
	}
	c.Set(ActorKey, actor)
	c.Set(UserIDKey, actor.UserID)
	return true
}

// VerifyToken rejects requests without a valid bearer token.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		if !m.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// OptionalToken lets anonymous requests through. A token that is sent must still be valid.
func (m *AuthMiddleware) OptionalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			c.Set(ActorKey, policy.Anonymous())
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		if !m.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor stored by the auth middleware, or the anonymous actor.
func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Anonymous()
}
