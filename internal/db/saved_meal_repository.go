package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
)

type savedMealRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewSavedMealRepository creates a SavedMealRepository over store.
func NewSavedMealRepository(store DocumentStore, logger *zap.Logger) SavedMealRepository {
	if store == nil {
		log.Fatal("DocumentStore is not initialized for SavedMealRepository.")
	}
	return &savedMealRepository{store: store, logger: logger}
}

func decodeSavedMeal(rec *Record) (*models.SavedMeal, error) {
	var meal models.SavedMeal
	if err := DecodeRecord(rec, &meal); err != nil {
		return nil, fmt.Errorf("failed to decode saved meal '%s': %w", rec.ID, err)
	}
	meal.ID = rec.ID
	meal.Recipe = models.NormalizeRecipe(meal.Recipe, meal.RecipeID)
	meal.SavedAt = orNow(meal.SavedAt)
	return &meal, nil
}

// Create stores a new saved meal with a store-assigned id and savedAt.
func (r *savedMealRepository) Create(ctx context.Context, meal *models.SavedMeal) (*models.SavedMeal, error) {
	recipe := meal.Recipe
	if recipe.Ingredients == nil {
		recipe.Ingredients = []string{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
	rec, err := r.store.Create(ctx, SavedMealsCollection, "", map[string]interface{}{
		"userId":   meal.UserID,
		"recipeId": meal.RecipeID,
		"recipe":   recipe,
		"savedAt":  ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save meal for user '%s': %w", meal.UserID, err)
	}
	return decodeSavedMeal(rec)
}

func (r *savedMealRepository) list(ctx context.Context, q Query) ([]*models.SavedMeal, error) {
	recs, err := r.store.ListWhere(ctx, SavedMealsCollection, q)
	if err != nil {
		return nil, err
	}
	meals := make([]*models.SavedMeal, 0, len(recs))
	for _, rec := range recs {
		meal, err := decodeSavedMeal(rec)
		if err != nil {
			r.logger.Warn("Skipping undecodable saved meal", zap.String("savedMealID", rec.ID), zap.Error(err))
			continue
		}
		meals = append(meals, meal)
	}
	return meals, nil
}

// ListByUser returns a user's saved meals, newest first.
func (r *savedMealRepository) ListByUser(ctx context.Context, userID string) ([]*models.SavedMeal, error) {
	meals, err := r.list(ctx, Query{
		Filters:    []Filter{Where("userId", userID)},
		OrderBy:    "savedAt",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list saved meals for user '%s': %w", userID, err)
	}
	return meals, nil
}

// FindByUserAndRecipe returns every saved meal matching the pair. Normally at most one.
func (r *savedMealRepository) FindByUserAndRecipe(ctx context.Context, userID, recipeID string) ([]*models.SavedMeal, error) {
	meals, err := r.list(ctx, Query{
		Filters: []Filter{Where("userId", userID), Where("recipeId", recipeID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find saved meal '%s' for user '%s': %w", recipeID, userID, err)
	}
	return meals, nil
}

func (r *savedMealRepository) Delete(ctx context.Context, savedMealID string) error {
	if savedMealID == "" {
		return errors.New("savedMealID cannot be empty for Delete operation")
	}
	if err := r.store.Delete(ctx, SavedMealsCollection, savedMealID); err != nil {
		return fmt.Errorf("failed to delete saved meal '%s': %w", savedMealID, err)
	}
	return nil
}
