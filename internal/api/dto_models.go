package api

import (
	"flavoriz-backend-go/internal/identity"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SignUpResponse is returned by POST /auth/signup. Session is nil when the
// account was created but the automatic sign-in did not go through.
type SignUpResponse struct {
	Session *identity.Session   `json:"session,omitempty"`
	Profile *models.UserProfile `json:"profile"`
}

// SavedStatusResponse answers GET /saved-meals/:recipeId.
type SavedStatusResponse struct {
	Saved bool `json:"saved"`
}

// PermissionsResponse lists what the current actor may do.
type PermissionsResponse struct {
	Role        models.Role         `json:"role"`
	Permissions []policy.Permission `json:"permissions"`
}
