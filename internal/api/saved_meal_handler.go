package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/middleware"
	"flavoriz-backend-go/internal/models"
)

// SavedMealHandler serves the current user's bookmarked recipes.
type SavedMealHandler struct {
	saved  core.SavedMealService
	logger *zap.Logger
}

func NewSavedMealHandler(saved core.SavedMealService, logger *zap.Logger) *SavedMealHandler {
	return &SavedMealHandler{saved: saved, logger: logger}
}

// ListSaved handles GET /saved-meals, newest first.
func (h *SavedMealHandler) ListSaved(c *gin.Context) {
	list, err := h.saved.ListSaved(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if list == nil {
		list = []*models.SavedMeal{}
	}
	c.JSON(http.StatusOK, list)
}

// SaveMeal handles POST /saved-meals
func (h *SavedMealHandler) SaveMeal(c *gin.Context) {
	var req models.SaveMealRequest
	if !bindJSON(c, &req) {
		return
	}

	saved, err := h.saved.SaveMeal(c.Request.Context(), middleware.ActorFrom(c), req.Detail())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// IsSaved handles GET /saved-meals/:recipeId
func (h *SavedMealHandler) IsSaved(c *gin.Context) {
	saved := h.saved.IsSaved(c.Request.Context(), middleware.ActorFrom(c), c.Param("recipeId"))
	c.JSON(http.StatusOK, SavedStatusResponse{Saved: saved})
}

// UnsaveMeal handles DELETE /saved-meals/:recipeId
func (h *SavedMealHandler) UnsaveMeal(c *gin.Context) {
	if err := h.saved.UnsaveMeal(c.Request.Context(), middleware.ActorFrom(c), c.Param("recipeId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
