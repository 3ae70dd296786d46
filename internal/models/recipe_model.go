package models

// Recipe is the summary form returned by catalog listings.
type Recipe struct {
	ID       string `json:"id" firestore:"id" yaml:"id"`
	Title    string `json:"title" firestore:"title" yaml:"title"`
	Image    string `json:"image" firestore:"image" yaml:"image"`
	Category string `json:"category" firestore:"category" yaml:"category"`
	Duration string `json:"duration" firestore:"duration" yaml:"duration"`
}

// RecipeDetail extends Recipe with ingredients and instructions.
type RecipeDetail struct {
	ID           string   `json:"id" firestore:"id" yaml:"id"`
	Title        string   `json:"title" firestore:"title" yaml:"title"`
	Image        string   `json:"image" firestore:"image" yaml:"image"`
	Category     string   `json:"category" firestore:"category" yaml:"category"`
	Duration     string   `json:"duration" firestore:"duration" yaml:"duration"`
	Ingredients  []string `json:"ingredients" firestore:"ingredients" yaml:"ingredients"`
	Instructions []string `json:"instructions" firestore:"instructions" yaml:"instructions"`
}

// Summary drops the ingredient and instruction lists.
func (r RecipeDetail) Summary() Recipe {
	return Recipe{ID: r.ID, Title: r.Title, Image: r.Image, Category: r.Category, Duration: r.Duration}
}

// CuratedPlan is a read-only template plan published by the catalog.
type CuratedPlan struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
	Recommended bool   `json:"recommended,omitempty" yaml:"recommended"`
}
