package models

// CreateMealPlanRequest represents the request body for creating a new meal plan.
type CreateMealPlanRequest struct {
	Title       string `json:"title" binding:"required" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	Image       string `json:"image,omitempty"`
}

// UpdateMealPlanRequest represents the request body for updating plan metadata.
// Pointers distinguish "clear this field" from "field not provided".
type UpdateMealPlanRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string `json:"image,omitempty"`
}

// Empty reports whether no field was provided.
func (r UpdateMealPlanRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Image == nil
}

// AddRecipeRequest carries the recipe to append to a plan.
type AddRecipeRequest struct {
	ID       string `json:"id" binding:"required" validate:"required"`
	Title    string `json:"title" binding:"required" validate:"required"`
	Image    string `json:"image"`
	Category string `json:"category"`
	Duration string `json:"duration"`
}

// AddCollaboratorRequest names the user to invite to a plan.
type AddCollaboratorRequest struct {
	UserID string `json:"userId" binding:"required" validate:"required"`
}

// SaveMealRequest is the recipe snapshot to bookmark.
type SaveMealRequest struct {
	ID           string   `json:"id" binding:"required" validate:"required"`
	Title        string   `json:"title"`
	Image        string   `json:"image"`
	Category     string   `json:"category"`
	Duration     string   `json:"duration"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Detail converts the request into a recipe snapshot.
func (r SaveMealRequest) Detail() RecipeDetail {
	return RecipeDetail{
		ID:           r.ID,
		Title:        r.Title,
		Image:        r.Image,
		Category:     r.Category,
		Duration:     r.Duration,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
	}
}

// SignUpRequest creates a credential and a profile.
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email" validate:"required,email"`
	Password    string `json:"password" binding:"required,min=6" validate:"required,min=6"`
	DisplayName string `json:"displayName,omitempty" validate:"max=80"`
}

// SignInRequest exchanges a password for an ID token.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PasswordResetRequest asks for a reset link to be mailed.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateProfileRequest only allows the display name to change.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" binding:"required" validate:"required,max=80"`
}

// UpdateRoleRequest is used by admins to change another user's role.
type UpdateRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=user moderator admin"`
}
