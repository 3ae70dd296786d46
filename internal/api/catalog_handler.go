package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/catalog"
)

const (
	defaultRandomRecipes = 6
	maxRandomRecipes     = 50
)

// CatalogHandler exposes the read-only recipe catalog. The catalog client falls
// back to the built-in samples, so these endpoints only fail on cancellation.
type CatalogHandler struct {
	catalog catalog.Client
	logger  *zap.Logger
}

func NewCatalogHandler(client catalog.Client, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: client, logger: logger}
}

// ListRecipes handles GET /recipes?q=&category=. A category takes precedence over q.
func (h *CatalogHandler) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		recipes, err := h.catalog.ListByCategory(ctx, category)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, recipes)
		return
	}

	recipes, err := h.catalog.Search(ctx, c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// RandomRecipes handles GET /recipes/random?n=
func (h *CatalogHandler) RandomRecipes(c *gin.Context) {
	n := defaultRandomRecipes
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "n must be a positive integer", Details: raw})
			return
		}
		n = min(parsed, maxRandomRecipes)
	}

	recipes, err := h.catalog.ListRandom(c.Request.Context(), n)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// ListCategories handles GET /recipes/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetRecipe handles GET /recipes/:recipeId. Unknown ids yield the
// "Recipe Not Found" placeholder rather than a 404.
func (h *CatalogHandler) GetRecipe(c *gin.Context) {
	detail, err := h.catalog.GetByID(c.Request.Context(), c.Param("recipeId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListCuratedPlans handles GET /curated-plans
func (h *CatalogHandler) ListCuratedPlans(c *gin.Context) {
	plans, err := h.catalog.ListCuratedPlans(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// CuratedPlanMeals handles GET /curated-plans/:planId/meals
func (h *CatalogHandler) CuratedPlanMeals(c *gin.Context) {
	meals, err := h.catalog.MealsForPlan(c.Request.Context(), c.Param("planId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}
