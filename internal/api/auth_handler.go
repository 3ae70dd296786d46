package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/middleware"
	"flavoriz-backend-go/internal/models"
)

// AuthHandler handles authentication related API endpoints.
type AuthHandler struct {
	identity core.IdentityService
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity core.IdentityService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, logger: logger}
}

// SignUp handles POST /auth/signup. The account and its profile (role user)
// are created together; the returned session may be absent if the follow-up
// sign-in failed, in which case the client signs in on its own.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	session, profile, err := h.identity.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("User signed up", zap.String("user_id", profile.ID))
	c.JSON(http.StatusCreated, SignUpResponse{Session: session, Profile: profile})
}

// SignIn handles POST /auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.identity.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignOut handles POST /auth/signout by revoking the caller's refresh tokens.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.identity.SignOut(c.Request.Context(), middleware.ActorFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestPasswordReset handles POST /auth/password-reset. The answer is the
// same whether or not the address belongs to an account.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.identity.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "If an account exists for this email, a reset link has been sent."})
}

// InitializeUserProfile handles the POST /api/v1/users/initialize endpoint.
// It is called by clients that signed up directly against the identity
// provider, to make sure a matching profile exists.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	profile, created, err := h.identity.Initialize(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if created {
		h.logger.Info("User profile created", zap.String("user_id", actor.UserID))
		c.JSON(http.StatusCreated, profile)
		return
	}
	c.JSON(http.StatusOK, profile)
}
