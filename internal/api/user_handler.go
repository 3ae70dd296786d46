package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/middleware"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

// UserHandler handles user-profile related API endpoints.
type UserHandler struct {
	identity  core.IdentityService
	directory core.DirectoryService
	logger    *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(identity core.IdentityService, directory core.DirectoryService, logger *zap.Logger) *UserHandler {
	return &UserHandler{identity: identity, directory: directory, logger: logger}
}

// GetCurrentUserProfile handles the GET /api/v1/users/me endpoint.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	profile, err := h.identity.GetProfile(c.Request.Context(), middleware.ActorFrom(c), "")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateCurrentUserProfile handles PATCH /users/me. Only the display name can change.
func (h *UserHandler) UpdateCurrentUserProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.identity.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c), "", req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPermissions handles GET /users/me/permissions
func (h *UserHandler) GetPermissions(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	perms := h.identity.Permissions(actor)
	if perms == nil {
		perms = []policy.Permission{}
	}
	c.JSON(http.StatusOK, PermissionsResponse{Role: actor.Role, Permissions: perms})
}

// SearchUsers handles GET /users/search?q=, used to pick collaborators.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.directory.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.UserProfile{}
	}
	c.JSON(http.StatusOK, users)
}

// UpdateRole handles PUT /users/:userId/role (admins only).
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := middleware.ActorFrom(c)
	profile, err := h.identity.UpdateRole(c.Request.Context(), actor, c.Param("userId"), req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("User role changed",
		zap.String("user_id", profile.ID),
		zap.String("role", string(profile.Role)),
		zap.String("changed_by", actor.UserID),
	)
	c.JSON(http.StatusOK, profile)
}
