package models

import "time"

// DefaultMealPlanImage is used when a plan is created without an image.
const DefaultMealPlanImage = "/healthy-meal-prep.png"

// Meal is a single entry of a meal plan. Meals are kept in display order.
type Meal struct {
	ID       string `json:"id" firestore:"id" yaml:"id"`
	Title    string `json:"title" firestore:"title" yaml:"title"`
	Image    string `json:"image" firestore:"image" yaml:"image"`
	Duration string `json:"duration" firestore:"duration" yaml:"duration"`
	RecipeID string `json:"recipeId" firestore:"recipeId" yaml:"recipeId"`
}

// MealPlan is a user-owned (or curated) ordered collection of meals.
type MealPlan struct {
	ID            string    `json:"id" firestore:"-"` // Document ID, assigned by the store
	OwnerID       string    `json:"ownerId" firestore:"ownerId"`
	Title         string    `json:"title" firestore:"title"`
	Description   string    `json:"description" firestore:"description"`
	Image         string    `json:"image" firestore:"image"`
	Meals         []Meal    `json:"meals" firestore:"meals"`
	Collaborators []string  `json:"collaborators" firestore:"collaborators"`
	IsCustom      bool      `json:"isCustom" firestore:"isCustom"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt     time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`

	// Version is the store revision the plan was read at. Not persisted.
	Version string `json:"-" firestore:"-"`
}

// HasRecipe reports whether a meal referencing recipeID is already in the plan.
func (p *MealPlan) HasRecipe(recipeID string) bool {
	for _, m := range p.Meals {
		if m.RecipeID == recipeID {
			return true
		}
	}
	return false
}

// HasCollaborator reports whether userID is listed as a collaborator.
func (p *MealPlan) HasCollaborator(userID string) bool {
	for _, c := range p.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

// LegacyUserMealPlan is the single-user plan shape persisted by older clients
// in the local fallback store. It is only read during migration.
type LegacyUserMealPlan struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"userId" firestore:"userId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Image       string    `json:"image" firestore:"image"`
	Meals       []Meal    `json:"meals" firestore:"meals"`
	IsCustom    *bool     `json:"isCustom,omitempty" firestore:"isCustom"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}
