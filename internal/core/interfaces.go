package core

import (
	"context"
	"errors"

	"flavoriz-backend-go/internal/identity"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

// Errors returned by the core services. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrForbidden              = errors.New("user does not have permission for this action on the meal plan")
	ErrPlanNotFound           = errors.New("meal plan not found")
	ErrDuplicateRecipe        = errors.New("recipe is already in this meal plan")
	ErrInvalidInput           = errors.New("invalid input")
	ErrAlreadyCollaborator    = errors.New("user is already a collaborator on this meal plan")
	ErrCollaboratorIsOwner    = errors.New("the owner cannot be added as a collaborator")
	ErrUserNotFound           = errors.New("user not found")
	ErrSavedMealNotFound      = errors.New("saved meal not found")
	ErrQueryTooShort          = errors.New("search query must be at least 2 characters")
	ErrConcurrentModification = errors.New("meal plan was modified concurrently, please retry")
	ErrEmailTaken             = errors.New("an account with this email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
)

// MealPlanService manages meal plans on behalf of an actor.
type MealPlanService interface {
	CreatePlan(ctx context.Context, actor policy.Actor, req models.CreateMealPlanRequest) (*models.MealPlan, error)
	// ListPlansForActor returns owned and shared plans, most recently updated first.
	ListPlansForActor(ctx context.Context, actor policy.Actor) ([]*models.MealPlan, error)
	// GetPlan returns (nil, nil) when the plan does not exist or the actor cannot see it.
	GetPlan(ctx context.Context, actor policy.Actor, planID string) (*models.MealPlan, error)
	UpdatePlan(ctx context.Context, actor policy.Actor, planID string, req models.UpdateMealPlanRequest) (*models.MealPlan, error)
	DeletePlan(ctx context.Context, actor policy.Actor, planID string) error
	AddRecipe(ctx context.Context, actor policy.Actor, planID string, recipe models.Recipe) (*models.MealPlan, error)
	RemoveMeal(ctx context.Context, actor policy.Actor, planID, mealID string) (*models.MealPlan, error)
	DuplicatePlan(ctx context.Context, actor policy.Actor, planID string) (*models.MealPlan, error)
	AddCollaborator(ctx context.Context, actor policy.Actor, planID, userID string) (*models.MealPlan, error)
	RemoveCollaborator(ctx context.Context, actor policy.Actor, planID, userID string) (*models.MealPlan, error)
}

// SavedMealService manages an actor's bookmarked recipes.
type SavedMealService interface {
	SaveMeal(ctx context.Context, actor policy.Actor, recipe models.RecipeDetail) (*models.SavedMeal, error)
	UnsaveMeal(ctx context.Context, actor policy.Actor, recipeID string) error
	// IsSaved never fails; any error reads as "not saved".
	IsSaved(ctx context.Context, actor policy.Actor, recipeID string) bool
	ListSaved(ctx context.Context, actor policy.Actor) ([]*models.SavedMeal, error)
}

// DirectoryService searches user profiles.
type DirectoryService interface {
	SearchUsers(ctx context.Context, query string) ([]*models.UserProfile, error)
}

// IdentityService turns credentials into actors and manages profiles.
type IdentityService interface {
	// Resolve verifies an ID token and loads the caller's role.
	Resolve(ctx context.Context, idToken string) (policy.Actor, error)
	SignUp(ctx context.Context, req models.SignUpRequest) (*identity.Session, *models.UserProfile, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*identity.Session, error)
	SignOut(ctx context.Context, actor policy.Actor) error
	RequestPasswordReset(ctx context.Context, email string) error
	// Initialize returns the actor's profile, creating it with role user if missing.
	Initialize(ctx context.Context, actor policy.Actor) (*models.UserProfile, bool, error)
	GetProfile(ctx context.Context, actor policy.Actor, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, userID string, req models.UpdateProfileRequest) (*models.UserProfile, error)
	UpdateRole(ctx context.Context, actor policy.Actor, userID string, role models.Role) (*models.UserProfile, error)
	Permissions(actor policy.Actor) []policy.Permission
}

// EventService delivers user-visible plan events to the notification sink.
type EventService interface {
	Record(ctx context.Context, event models.PlanEvent) error
}
