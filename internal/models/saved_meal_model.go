package models

import (
	"strings"
	"time"
)

// PlaceholderImage replaces missing recipe images.
const PlaceholderImage = "/placeholder.svg"

// SavedMeal is a bookmarked recipe, keyed by (UserID, RecipeID).
type SavedMeal struct {
	ID       string       `json:"id" firestore:"-"`
	UserID   string       `json:"userId" firestore:"userId"`
	RecipeID string       `json:"recipeId" firestore:"recipeId"`
	Recipe   RecipeDetail `json:"recipe" firestore:"recipe"`
	SavedAt  time.Time    `json:"savedAt" firestore:"savedAt,serverTimestamp"`
}

// NormalizeImage returns image, or PlaceholderImage when image is blank or the literal "null".
func NormalizeImage(image string) string {
	if strings.TrimSpace(image) == "" || image == "null" {
		return PlaceholderImage
	}
	return image
}

// NormalizeRecipe fills every display field of a recipe snapshot with a usable value.
// fallbackID is used when the snapshot carries no id of its own.
func NormalizeRecipe(r RecipeDetail, fallbackID string) RecipeDetail {
	if r.ID == "" {
		r.ID = fallbackID
	}
	if r.Title == "" {
		r.Title = "Unknown Recipe"
	}
	r.Image = NormalizeImage(r.Image)
	if r.Category == "" {
		r.Category = "Unknown"
	}
	if r.Duration == "" {
		r.Duration = "N/A"
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return r
}
