package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

// savedMealService implements the SavedMealService interface.
type savedMealService struct {
	saved  db.SavedMealRepository
	events EventService
	logger *zap.Logger
}

// NewSavedMealService creates a new SavedMealService instance.
func NewSavedMealService(saved db.SavedMealRepository, events EventService, logger *zap.Logger) SavedMealService {
	if saved == nil {
		log.Fatal("SavedMealRepository is not initialized for SavedMealService.")
	}
	return &savedMealService{saved: saved, events: events, logger: logger}
}

// snapshot prepares a recipe for storage. The title is left as given and is
// only defaulted when read back.
func snapshot(r models.RecipeDetail) models.RecipeDetail {
	title := r.Title
	r = models.NormalizeRecipe(r, r.ID)
	r.Title = title
	return r
}

// SaveMeal bookmarks recipe for the actor. Callers are expected to check
// IsSaved first; the ledger does not reject a second save.
func (s *savedMealService) SaveMeal(ctx context.Context, actor policy.Actor, recipe models.RecipeDetail) (*models.SavedMeal, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: save meal", ErrUnauthenticated)
	}
	recipe.ID = strings.TrimSpace(recipe.ID)
	if recipe.ID == "" {
		return nil, fmt.Errorf("%w: recipe id is required", ErrInvalidInput)
	}

	saved, err := s.saved.Create(ctx, &models.SavedMeal{
		UserID:   actor.UserID,
		RecipeID: recipe.ID,
		Recipe:   snapshot(recipe),
	})
	if err != nil {
		s.logger.Error("Failed to save meal", zap.String("userID", actor.UserID), zap.String("recipeID", recipe.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save meal '%s': %w", recipe.ID, err)
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionMealSave,
		TargetType: TargetRecipe,
		TargetID:   recipe.ID,
		Message:    "Meal saved!",
	})
	return saved, nil
}

// UnsaveMeal removes every bookmark of recipeID held by the actor.
func (s *savedMealService) UnsaveMeal(ctx context.Context, actor policy.Actor, recipeID string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: unsave meal", ErrUnauthenticated)
	}
	entries, err := s.saved.FindByUserAndRecipe(ctx, actor.UserID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to look up saved meal '%s': %w", recipeID, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s", ErrSavedMealNotFound, recipeID)
	}

	for _, e := range entries {
		if err := s.saved.Delete(ctx, e.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to delete saved meal '%s': %w", e.ID, err)
		}
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionMealUnsave,
		TargetType: TargetRecipe,
		TargetID:   recipeID,
		Message:    "Meal removed from saved",
	})
	return nil
}

func (s *savedMealService) IsSaved(ctx context.Context, actor policy.Actor, recipeID string) bool {
	if !actor.Authenticated() {
		return false
	}
	entries, err := s.saved.FindByUserAndRecipe(ctx, actor.UserID, recipeID)
	if err != nil {
		s.logger.Warn("Saved meal lookup failed, reporting not saved",
			zap.String("userID", actor.UserID), zap.String("recipeID", recipeID), zap.Error(err))
		return false
	}
	return len(entries) > 0
}

// ListSaved returns the actor's bookmarks, most recent first.
func (s *savedMealService) ListSaved(ctx context.Context, actor policy.Actor) ([]*models.SavedMeal, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: list saved meals", ErrUnauthenticated)
	}
	entries, err := s.saved.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved meals: %w", err)
	}
	return entries, nil
}
