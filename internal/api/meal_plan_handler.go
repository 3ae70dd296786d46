package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/middleware"
	"flavoriz-backend-go/internal/models"
)

// MealPlanHandler handles API endpoints related to meal plans.
type MealPlanHandler struct {
	plans  core.MealPlanService
	logger *zap.Logger
}

// NewMealPlanHandler creates a new MealPlanHandler.
func NewMealPlanHandler(plans core.MealPlanService, logger *zap.Logger) *MealPlanHandler {
	return &MealPlanHandler{plans: plans, logger: logger}
}

// CreatePlan handles POST /meal-plans
func (h *MealPlanHandler) CreatePlan(c *gin.Context) {
	var req models.CreateMealPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.plans.CreatePlan(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// ListPlans handles GET /meal-plans. Owned and shared plans come back together.
func (h *MealPlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.plans.ListPlansForActor(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if plans == nil {
		plans = []*models.MealPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// GetPlan handles GET /meal-plans/:planId. Invisible and missing plans are
// indistinguishable to the caller.
func (h *MealPlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.plans.GetPlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrPlanNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan handles PATCH /meal-plans/:planId
func (h *MealPlanHandler) UpdatePlan(c *gin.Context) {
	var req models.UpdateMealPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.plans.UpdatePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan handles DELETE /meal-plans/:planId
func (h *MealPlanHandler) DeletePlan(c *gin.Context) {
	if err := h.plans.DeletePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DuplicatePlan handles POST /meal-plans/:planId/duplicate. The id may name a
// stored plan or a curated catalog plan.
func (h *MealPlanHandler) DuplicatePlan(c *gin.Context) {
	plan, err := h.plans.DuplicatePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// AddMeal handles POST /meal-plans/:planId/meals
func (h *MealPlanHandler) AddMeal(c *gin.Context) {
	var req models.AddRecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe := models.Recipe{
		ID:       req.ID,
		Title:    req.Title,
		Image:    req.Image,
		Category: req.Category,
		Duration: req.Duration,
	}
	plan, err := h.plans.AddRecipe(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"), recipe)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// RemoveMeal handles DELETE /meal-plans/:planId/meals/:mealId
func (h *MealPlanHandler) RemoveMeal(c *gin.Context) {
	plan, err := h.plans.RemoveMeal(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"), c.Param("mealId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// AddCollaborator handles POST /meal-plans/:planId/collaborators
func (h *MealPlanHandler) AddCollaborator(c *gin.Context) {
	var req models.AddCollaboratorRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.plans.AddCollaborator(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"), req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// RemoveCollaborator handles DELETE /meal-plans/:planId/collaborators/:userId
func (h *MealPlanHandler) RemoveCollaborator(c *gin.Context) {
	plan, err := h.plans.RemoveCollaborator(c.Request.Context(), middleware.ActorFrom(c), c.Param("planId"), c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
