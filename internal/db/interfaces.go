package db

import (
	"context"

	"flavoriz-backend-go/internal/models"
)

// MealPlanUpdate lists the plan fields a write may change. Nil fields are left untouched.
type MealPlanUpdate struct {
	Title         *string
	Description   *string
	Image         *string
	Meals         *[]models.Meal
	Collaborators *[]string
}

// MealPlanRepository defines storage operations for meal plans.
type MealPlanRepository interface {
	Create(ctx context.Context, plan *models.MealPlan) (*models.MealPlan, error)
	GetByID(ctx context.Context, planID string) (*models.MealPlan, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.MealPlan, error)
	// ListByCollaborator returns plans whose collaborators contain userID.
	ListByCollaborator(ctx context.Context, userID string) ([]*models.MealPlan, error)
	// Update applies upd and refreshes updatedAt. A non-empty ifVersion makes the write conditional.
	Update(ctx context.Context, planID string, upd MealPlanUpdate, ifVersion string) (*WriteResult, error)
	Delete(ctx context.Context, planID string) error
}

// SavedMealRepository defines storage operations for saved meals.
type SavedMealRepository interface {
	Create(ctx context.Context, meal *models.SavedMeal) (*models.SavedMeal, error)
	ListByUser(ctx context.Context, userID string) ([]*models.SavedMeal, error)
	FindByUserAndRecipe(ctx context.Context, userID, recipeID string) ([]*models.SavedMeal, error)
	Delete(ctx context.Context, savedMealID string) error
}

// UserProfileUpdate lists the profile fields a write may change.
type UserProfileUpdate struct {
	DisplayName *string
	Role        *models.Role
}

// UserRepository defines storage operations for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) (*models.UserProfile, error)
	Update(ctx context.Context, userID string, upd UserProfileUpdate) error
	// ListAll returns every profile. Used by the directory search.
	ListAll(ctx context.Context) ([]*models.UserProfile, error)
}
