package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
)

// mealPlanRepository implements MealPlanRepository on any DocumentStore.
type mealPlanRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewMealPlanRepository creates a MealPlanRepository over store.
func NewMealPlanRepository(store DocumentStore, logger *zap.Logger) MealPlanRepository {
	if store == nil {
		log.Fatal("DocumentStore is not initialized for MealPlanRepository.")
	}
	return &mealPlanRepository{store: store, logger: logger}
}

// mealPlanFields is the stored shape of a plan, without timestamps.
func mealPlanFields(p *models.MealPlan) map[string]interface{} {
	meals := p.Meals
	if meals == nil {
		meals = []models.Meal{}
	}
	collaborators := p.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	return map[string]interface{}{
		"ownerId":       p.OwnerID,
		"title":         p.Title,
		"description":   p.Description,
		"image":         p.Image,
		"meals":         meals,
		"collaborators": collaborators,
		"isCustom":      p.IsCustom,
	}
}

func decodeMealPlan(rec *Record) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := DecodeRecord(rec, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode meal plan '%s': %w", rec.ID, err)
	}
	plan.ID = rec.ID
	plan.Version = rec.Version
	if _, ok := rec.Data["isCustom"]; !ok {
		plan.IsCustom = true
	}
	if plan.Image == "" {
		plan.Image = models.DefaultMealPlanImage
	}
	if plan.Meals == nil {
		plan.Meals = []models.Meal{}
	}
	if plan.Collaborators == nil {
		plan.Collaborators = []string{}
	}
	plan.CreatedAt = orNow(plan.CreatedAt)
	plan.UpdatedAt = orNow(plan.UpdatedAt)
	return &plan, nil
}

// Create stores a new plan. The store assigns the id and both timestamps.
func (r *mealPlanRepository) Create(ctx context.Context, plan *models.MealPlan) (*models.MealPlan, error) {
	fields := mealPlanFields(plan)
	fields["createdAt"] = ServerTimestamp
	fields["updatedAt"] = ServerTimestamp

	rec, err := r.store.Create(ctx, MealPlansCollection, "", fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return decodeMealPlan(rec)
}

// GetByID retrieves a plan, or ErrNotFound.
func (r *mealPlanRepository) GetByID(ctx context.Context, planID string) (*models.MealPlan, error) {
	if planID == "" {
		return nil, errors.New("planID cannot be empty for GetByID operation")
	}
	rec, err := r.store.Get(ctx, MealPlansCollection, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan '%s': %w", planID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("meal plan with ID '%s' not found: %w", planID, ErrNotFound)
	}
	return decodeMealPlan(rec)
}

func (r *mealPlanRepository) list(ctx context.Context, filter Filter) ([]*models.MealPlan, error) {
	recs, err := r.store.ListWhere(ctx, MealPlansCollection, Query{
		Filters:    []Filter{filter},
		OrderBy:    "updatedAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	plans := make([]*models.MealPlan, 0, len(recs))
	for _, rec := range recs {
		plan, err := decodeMealPlan(rec)
		if err != nil {
			r.logger.Warn("Skipping undecodable meal plan", zap.String("planID", rec.ID), zap.Error(err))
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// ListByOwner returns the plans owned by ownerID, most recently updated first.
func (r *mealPlanRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.MealPlan, error) {
	plans, err := r.list(ctx, Where("ownerId", ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for owner '%s': %w", ownerID, err)
	}
	return plans, nil
}

// ListByCollaborator returns the plans shared with userID, most recently updated first.
func (r *mealPlanRepository) ListByCollaborator(ctx context.Context, userID string) ([]*models.MealPlan, error) {
	plans, err := r.list(ctx, ArrayContains("collaborators", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans shared with '%s': %w", userID, err)
	}
	return plans, nil
}

// Update writes the provided fields and bumps updatedAt.
func (r *mealPlanRepository) Update(ctx context.Context, planID string, upd MealPlanUpdate, ifVersion string) (*WriteResult, error) {
	if planID == "" {
		return nil, errors.New("planID cannot be empty for Update operation")
	}
	fields := map[string]interface{}{"updatedAt": ServerTimestamp}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Image != nil {
		fields["image"] = *upd.Image
	}
	if upd.Meals != nil {
		fields["meals"] = *upd.Meals
	}
	if upd.Collaborators != nil {
		fields["collaborators"] = *upd.Collaborators
	}

	res, err := r.store.Update(ctx, MealPlansCollection, planID, fields, IfVersion(ifVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to update meal plan '%s': %w", planID, err)
	}
	return res, nil
}

// Delete removes a plan permanently.
func (r *mealPlanRepository) Delete(ctx context.Context, planID string) error {
	if planID == "" {
		return errors.New("planID cannot be empty for Delete operation")
	}
	if err := r.store.Delete(ctx, MealPlansCollection, planID); err != nil {
		return fmt.Errorf("failed to delete meal plan '%s': %w", planID, err)
	}
	return nil
}
