package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flavoriz-backend-go/internal/catalog"
	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/metrics"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

// maxWriteAttempts bounds the read-modify-write loop: one attempt plus three retries.
const maxWriteAttempts = 4

const mealIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newMealID returns "meal_<unix-millis>_<9 base36 chars>".
func newMealID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = mealIDAlphabet[rand.Intn(len(mealIDAlphabet))]
	}
	return fmt.Sprintf("meal_%d_%s", time.Now().UnixMilli(), suffix)
}

// mealPlanService implements the MealPlanService interface.
type mealPlanService struct {
	plans    db.MealPlanRepository
	users    db.UserRepository
	catalog  catalog.Client
	events   EventService
	logger   *zap.Logger
	validate *validator.Validate
	mealID   func() string
}

// NewMealPlanService creates a new MealPlanService instance.
func NewMealPlanService(
	plans db.MealPlanRepository,
	users db.UserRepository,
	catalogClient catalog.Client,
	events EventService,
	logger *zap.Logger,
) MealPlanService {
	if plans == nil || users == nil || catalogClient == nil {
		log.Fatal("MealPlanService requires plan and user repositories and a catalog client.")
	}
	return &mealPlanService{
		plans:    plans,
		users:    users,
		catalog:  catalogClient,
		events:   events,
		logger:   logger,
		validate: validator.New(),
		mealID:   newMealID,
	}
}

// fromPolicy translates a policy decision into a core error.
func fromPolicy(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrUnauthenticated):
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	case errors.Is(err, policy.ErrDenied):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CreatePlan creates an empty custom plan owned by the actor.
func (s *mealPlanService) CreatePlan(ctx context.Context, actor policy.Actor, req models.CreateMealPlanRequest) (*models.MealPlan, error) {
	if err := policy.Authorize(actor, nil, policy.ActionCreatePlan); err != nil {
		return nil, fromPolicy(err)
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return nil, invalidInput("title is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = models.DefaultMealPlanImage
	}
	plan, err := s.plans.Create(ctx, &models.MealPlan{
		OwnerID:       actor.UserID,
		Title:         req.Title,
		Description:   req.Description,
		Image:         image,
		Meals:         []models.Meal{},
		Collaborators: []string{},
		IsCustom:      true,
	})
	if err != nil {
		s.logger.Error("Failed to create meal plan", zap.String("userID", actor.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionPlanCreate,
		TargetType: TargetMealPlan,
		TargetID:   plan.ID,
		Message:    fmt.Sprintf("%q meal plan created!", plan.Title),
	})
	return plan, nil
}

// ListPlansForActor merges the owned and shared listings. A failing shared
// listing is logged and the owned plans are still returned.
func (s *mealPlanService) ListPlansForActor(ctx context.Context, actor policy.Actor) ([]*models.MealPlan, error) {
	if !actor.Authenticated() {
		return []*models.MealPlan{}, nil
	}

	var owned, shared []*models.MealPlan
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plans, err := s.plans.ListByOwner(gctx, actor.UserID)
		if err != nil {
			return err
		}
		owned = plans
		return nil
	})
	g.Go(func() error {
		plans, err := s.plans.ListByCollaborator(gctx, actor.UserID)
		if err != nil {
			if gctx.Err() == nil {
				s.logger.Warn("Failed to list shared meal plans, returning owned plans only",
					zap.String("userID", actor.UserID), zap.Error(err))
			}
			return nil
		}
		shared = plans
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list meal plans for user '%s': %w", actor.UserID, err)
	}

	seen := make(map[string]bool, len(owned)+len(shared))
	merged := make([]*models.MealPlan, 0, len(owned)+len(shared))
	for _, list := range [][]*models.MealPlan{owned, shared} {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})
	return merged, nil
}

// GetPlan returns the plan if the actor can see it.
func (s *mealPlanService) GetPlan(ctx context.Context, actor policy.Actor, planID string) (*models.MealPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan '%s': %w", planID, err)
	}
	if !policy.Allowed(actor, plan, policy.ActionReadPlan) {
		return nil, nil
	}
	return plan, nil
}

// load fetches a plan for mutation. Plans the actor cannot see are reported as not found.
func (s *mealPlanService) load(ctx context.Context, actor policy.Actor, planID string) (*models.MealPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("failed to get meal plan '%s': %w", planID, err)
	}
	if !policy.Allowed(actor, plan, policy.ActionReadPlan) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan, nil
}

// changeFunc computes the update for a freshly read plan. Returning a nil
// update means there is nothing to write.
type changeFunc func(plan *models.MealPlan) (*db.MealPlanUpdate, error)

// mutate runs a versioned read-modify-write, retrying on conflicts.
func (s *mealPlanService) mutate(ctx context.Context, actor policy.Actor, planID string, action policy.Action, change changeFunc) (*models.MealPlan, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, action)
	}

	for attempt := 1; ; attempt++ {
		plan, err := s.load(ctx, actor, planID)
		if err != nil {
			return nil, err
		}
		if err := policy.Authorize(actor, plan, action); err != nil {
			return nil, fromPolicy(err)
		}

		upd, err := change(plan)
		if err != nil {
			return nil, err
		}
		if upd == nil {
			return plan, nil
		}

		res, err := s.plans.Update(ctx, planID, *upd, plan.Version)
		if err == nil {
			applyUpdate(plan, *upd)
			plan.Version = res.Version
			plan.UpdatedAt = res.UpdateTime
			return plan, nil
		}

		switch {
		case errors.Is(err, db.ErrVersionConflict):
			metrics.VersionConflicts.WithLabelValues(string(action)).Inc()
			if attempt >= maxWriteAttempts {
				s.logger.Warn("Giving up on meal plan write after repeated conflicts",
					zap.String("planID", planID), zap.String("action", string(action)), zap.Int("attempts", attempt))
				return nil, fmt.Errorf("%w: %s", ErrConcurrentModification, planID)
			}
			s.logger.Debug("Meal plan changed during write, retrying",
				zap.String("planID", planID), zap.Int("attempt", attempt))
		case errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		default:
			s.logger.Error("Failed to update meal plan", zap.String("planID", planID), zap.Error(err))
			return nil, err
		}
	}
}

func applyUpdate(plan *models.MealPlan, upd db.MealPlanUpdate) {
	if upd.Title != nil {
		plan.Title = *upd.Title
	}
	if upd.Description != nil {
		plan.Description = *upd.Description
	}
	if upd.Image != nil {
		plan.Image = *upd.Image
	}
	if upd.Meals != nil {
		plan.Meals = *upd.Meals
	}
	if upd.Collaborators != nil {
		plan.Collaborators = *upd.Collaborators
	}
}

// UpdatePlan changes title, description or image.
func (s *mealPlanService) UpdatePlan(ctx context.Context, actor policy.Actor, planID string, req models.UpdateMealPlanRequest) (*models.MealPlan, error) {
	if req.Empty() {
		return nil, invalidInput("no fields to update")
	}
	upd := db.MealPlanUpdate{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalidInput("title cannot be empty")
		}
		upd.Title = &title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		upd.Description = &description
	}
	if req.Image != nil {
		image := strings.TrimSpace(*req.Image)
		if image == "" {
			image = models.DefaultMealPlanImage
		}
		upd.Image = &image
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	plan, err := s.mutate(ctx, actor, planID, policy.ActionUpdatePlan, func(*models.MealPlan) (*db.MealPlanUpdate, error) {
		return &upd, nil
	})
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionPlanUpdate,
		TargetType: TargetMealPlan,
		TargetID:   plan.ID,
		Message:    "Meal plan updated",
	})
	return plan, nil
}

// DeletePlan removes the plan permanently.
func (s *mealPlanService) DeletePlan(ctx context.Context, actor policy.Actor, planID string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, policy.ActionDeletePlan)
	}
	plan, err := s.load(ctx, actor, planID)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, plan, policy.ActionDeletePlan); err != nil {
		return fromPolicy(err)
	}
	if err := s.plans.Delete(ctx, planID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		s.logger.Error("Failed to delete meal plan", zap.String("planID", planID), zap.Error(err))
		return err
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionPlanDelete,
		TargetType: TargetMealPlan,
		TargetID:   planID,
		Recipients: plan.Collaborators,
		Message:    "Meal plan deleted",
	})
	return nil
}

// AddRecipe appends a meal for recipe unless the plan already references it.
func (s *mealPlanService) AddRecipe(ctx context.Context, actor policy.Actor, planID string, recipe models.Recipe) (*models.MealPlan, error) {
	if strings.TrimSpace(recipe.ID) == "" {
		return nil, invalidInput("recipe id is required")
	}
	duration := recipe.Duration
	if duration == "" {
		duration = "N/A"
	}

	plan, err := s.mutate(ctx, actor, planID, policy.ActionAddMeal, func(p *models.MealPlan) (*db.MealPlanUpdate, error) {
		if p.HasRecipe(recipe.ID) {
			return nil, fmt.Errorf("%w: recipe '%s' in plan '%s'", ErrDuplicateRecipe, recipe.ID, p.ID)
		}
		meals := append(append(make([]models.Meal, 0, len(p.Meals)+1), p.Meals...), models.Meal{
			ID:       s.mealID(),
			Title:    recipe.Title,
			Image:    models.NormalizeImage(recipe.Image),
			Duration: duration,
			RecipeID: recipe.ID,
		})
		return &db.MealPlanUpdate{Meals: &meals}, nil
	})
	if err != nil {
		return nil, err
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionMealAdd,
		TargetType: TargetMealPlan,
		TargetID:   plan.ID,
		Message:    fmt.Sprintf("%s added to meal plan!", recipe.Title),
		Details:    map[string]interface{}{"recipeId": recipe.ID},
	})
	return plan, nil
}

// RemoveMeal drops mealID from the plan. Unknown meal ids leave the plan untouched.
func (s *mealPlanService) RemoveMeal(ctx context.Context, actor policy.Actor, planID, mealID string) (*models.MealPlan, error) {
	removed := false
	plan, err := s.mutate(ctx, actor, planID, policy.ActionRemoveMeal, func(p *models.MealPlan) (*db.MealPlanUpdate, error) {
		meals := make([]models.Meal, 0, len(p.Meals))
		for _, m := range p.Meals {
			if m.ID != mealID {
				meals = append(meals, m)
			}
		}
		removed = len(meals) != len(p.Meals)
		if !removed {
			return nil, nil
		}
		return &db.MealPlanUpdate{Meals: &meals}, nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		recordEvent(ctx, s.events, s.logger, models.PlanEvent{
			UserID:     actor.UserID,
			Action:     ActionMealRemove,
			TargetType: TargetMealPlan,
			TargetID:   plan.ID,
			Message:    "Meal removed from plan",
			Details:    map[string]interface{}{"mealId": mealID},
		})
	}
	return plan, nil
}

// DuplicatePlan copies a readable plan, or a curated catalog plan, into a new
// custom plan owned by the actor.
func (s *mealPlanService) DuplicatePlan(ctx context.Context, actor policy.Actor, planID string) (*models.MealPlan, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, policy.ActionDuplicatePlan)
	}

	source, err := s.plans.GetByID(ctx, planID)
	switch {
	case err == nil:
		if err := policy.Authorize(actor, source, policy.ActionDuplicatePlan); err != nil {
			if errors.Is(err, policy.ErrDenied) {
				return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
			}
			return nil, fromPolicy(err)
		}
	case errors.Is(err, db.ErrNotFound):
		source, err = s.curatedPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to get meal plan '%s': %w", planID, err)
	}

	meals := make([]models.Meal, len(source.Meals))
	for i, m := range source.Meals {
		m.ID = s.mealID()
		meals[i] = m
	}
	image := source.Image
	if image == "" {
		image = models.DefaultMealPlanImage
	}

	copied, err := s.plans.Create(ctx, &models.MealPlan{
		OwnerID:       actor.UserID,
		Title:         source.Title + " (Copy)",
		Description:   source.Description,
		Image:         image,
		Meals:         meals,
		Collaborators: []string{},
		IsCustom:      true,
	})
	if err != nil {
		s.logger.Error("Failed to create duplicated meal plan", zap.String("sourceID", planID), zap.Error(err))
		return nil, fmt.Errorf("failed to duplicate meal plan '%s': %w", planID, err)
	}

	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionPlanDuplicate,
		TargetType: TargetMealPlan,
		TargetID:   copied.ID,
		Message:    "Meal plan duplicated",
		Details:    map[string]interface{}{"sourceId": planID},
	})
	return copied, nil
}

// curatedPlan builds a read-only plan from the catalog. The catalog client
// already answers from the built-in sample set when the remote is down.
func (s *mealPlanService) curatedPlan(ctx context.Context, planID string) (*models.MealPlan, error) {
	curated, err := s.catalog.ListCuratedPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list curated plans: %w", err)
	}

	plan := &models.MealPlan{ID: planID, IsCustom: false}
	found := false
	for _, c := range curated {
		if c.ID == planID {
			plan.Title, plan.Description, plan.Image = c.Title, c.Description, c.Image
			found = true
			break
		}
	}
	if !found {
		title, ok := catalog.CuratedTitle(planID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		plan.Title = title
		plan.Image = models.DefaultMealPlanImage
	}

	meals, err := s.catalog.MealsForPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals of curated plan '%s': %w", planID, err)
	}
	plan.Meals = meals
	return plan, nil
}

// AddCollaborator shares the plan with userID. Only the owner may do this.
func (s *mealPlanService) AddCollaborator(ctx context.Context, actor policy.Actor, planID, userID string) (*models.MealPlan, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalidInput("userId is required")
	}

	var invitee *models.UserProfile
	plan, err := s.mutate(ctx, actor, planID, policy.ActionManageCollaborators, func(p *models.MealPlan) (*db.MealPlanUpdate, error) {
		if userID == p.OwnerID {
			return nil, fmt.Errorf("%w: plan '%s'", ErrCollaboratorIsOwner, p.ID)
		}
		if p.HasCollaborator(userID) {
			return nil, fmt.Errorf("%w: '%s' on plan '%s'", ErrAlreadyCollaborator, userID, p.ID)
		}
		if invitee == nil {
			profile, err := s.users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
				}
				return nil, fmt.Errorf("failed to look up user '%s': %w", userID, err)
			}
			invitee = profile
		}
		collaborators := append(append(make([]string, 0, len(p.Collaborators)+1), p.Collaborators...), userID)
		return &db.MealPlanUpdate{Collaborators: &collaborators}, nil
	})
	if err != nil {
		return nil, err
	}

	inviter := actor.DisplayName
	if inviter == "" {
		inviter = actor.Email
	}
	recordEvent(ctx, s.events, s.logger, models.PlanEvent{
		UserID:     actor.UserID,
		Action:     ActionCollaboratorAdd,
		TargetType: TargetMealPlan,
		TargetID:   plan.ID,
		Recipients: []string{userID},
		Message:    "Collaborator added successfully!",
		Details: map[string]interface{}{
			"collaboratorId": userID,
			"inviteeEmail":   invitee.Email,
			"planTitle":      plan.Title,
			"inviterName":    inviter,
		},
	})
	return plan, nil
}

// RemoveCollaborator revokes userID's access. Removing a non-collaborator succeeds.
func (s *mealPlanService) RemoveCollaborator(ctx context.Context, actor policy.Actor, planID, userID string) (*models.MealPlan, error) {
	removed := false
	plan, err := s.mutate(ctx, actor, planID, policy.ActionManageCollaborators, func(p *models.MealPlan) (*db.MealPlanUpdate, error) {
		removed = p.HasCollaborator(userID)
		if !removed {
			return nil, nil
		}
		collaborators := make([]string, 0, len(p.Collaborators))
		for _, c := range p.Collaborators {
			if c != userID {
				collaborators = append(collaborators, c)
			}
		}
		return &db.MealPlanUpdate{Collaborators: &collaborators}, nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		recordEvent(ctx, s.events, s.logger, models.PlanEvent{
			UserID:     actor.UserID,
			Action:     ActionCollaboratorRemove,
			TargetType: TargetMealPlan,
			TargetID:   plan.ID,
			Recipients: []string{userID},
			Message:    "Collaborator removed successfully!",
		})
	}
	return plan, nil
}
