// Package catalog talks to the read-only recipe catalog API. Every call falls
// back to the built-in sample set when the API is unreachable or answers with
// anything but 200, so callers always get something to render.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/metrics"
	"flavoriz-backend-go/internal/models"
)

// Client is the recipe catalog as seen by the rest of the application.
type Client interface {
	Search(ctx context.Context, term string) ([]models.Recipe, error)
	GetByID(ctx context.Context, recipeID string) (models.RecipeDetail, error)
	ListByCategory(ctx context.Context, category string) ([]models.Recipe, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListRandom(ctx context.Context, n int) ([]models.Recipe, error)
	ListCuratedPlans(ctx context.Context) ([]models.CuratedPlan, error)
	MealsForPlan(ctx context.Context, planID string) ([]models.Meal, error)
}

// Options configures the HTTP catalog client.
type Options struct {
	// BaseURL of the catalog API. Empty means always use the sample set.
	BaseURL string
	Timeout time.Duration
}

// httpClient is the concrete implementation of the catalog client.
type httpClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a new catalog client.
func NewClient(opts Options, logger *zap.Logger) Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		logger:     logger,
	}
}

// get fetches path and decodes the JSON body into out.
func (c *httpClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("catalog base URL not configured")
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog api error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fallback records that operation was answered from the sample set.
func (c *httpClient) fallback(ctx context.Context, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.CatalogFallbacks.WithLabelValues(operation).Inc()
	if c.baseURL != "" {
		c.logger.Warn("Recipe catalog unavailable, serving sample data",
			zap.String("operation", operation), zap.Error(err))
	}
	return nil
}

func (c *httpClient) Search(ctx context.Context, term string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	q := url.Values{}
	if term = strings.TrimSpace(term); term != "" {
		q.Set("q", term)
	}
	if err := c.get(ctx, "/recipes", q, &recipes); err != nil {
		if ctxErr := c.fallback(ctx, "search", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.search(term), nil
	}
	return normalizeRecipes(recipes), nil
}

// GetByID returns the recipe detail, or the "Recipe Not Found" placeholder.
func (c *httpClient) GetByID(ctx context.Context, recipeID string) (models.RecipeDetail, error) {
	var detail models.RecipeDetail
	if err := c.get(ctx, "/recipes/"+url.PathEscape(recipeID), nil, &detail); err != nil {
		if ctxErr := c.fallback(ctx, "get_by_id", err); ctxErr != nil {
			return models.RecipeDetail{}, ctxErr
		}
		return samples.detail(recipeID), nil
	}
	return models.NormalizeRecipe(detail, recipeID), nil
}

func (c *httpClient) ListByCategory(ctx context.Context, category string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := c.get(ctx, "/recipes", url.Values{"category": {category}}, &recipes); err != nil {
		if ctxErr := c.fallback(ctx, "list_by_category", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.byCategory(category), nil
	}
	return normalizeRecipes(recipes), nil
}

func (c *httpClient) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/categories", nil, &categories); err != nil {
		if ctxErr := c.fallback(ctx, "list_categories", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.categories(), nil
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// ListRandom returns up to n recipes in random order.
func (c *httpClient) ListRandom(ctx context.Context, n int) ([]models.Recipe, error) {
	if n <= 0 {
		return []models.Recipe{}, nil
	}
	var recipes []models.Recipe
	if err := c.get(ctx, "/recipes/random", url.Values{"count": {strconv.Itoa(n)}}, &recipes); err != nil {
		if ctxErr := c.fallback(ctx, "list_random", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.random(n), nil
	}
	if len(recipes) > n {
		recipes = recipes[:n]
	}
	return normalizeRecipes(recipes), nil
}

func (c *httpClient) ListCuratedPlans(ctx context.Context) ([]models.CuratedPlan, error) {
	var plans []models.CuratedPlan
	if err := c.get(ctx, "/meal-plans", nil, &plans); err != nil {
		if ctxErr := c.fallback(ctx, "list_curated_plans", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.curated(), nil
	}
	for i := range plans {
		if plans[i].Image == "" {
			plans[i].Image = models.DefaultMealPlanImage
		}
	}
	return plans, nil
}

// MealsForPlan lists the meals of a curated plan.
func (c *httpClient) MealsForPlan(ctx context.Context, planID string) ([]models.Meal, error) {
	var meals []models.Meal
	if err := c.get(ctx, "/meals", url.Values{"planId": {planID}}, &meals); err != nil {
		if ctxErr := c.fallback(ctx, "meals_for_plan", err); ctxErr != nil {
			return nil, ctxErr
		}
		return samples.meals(planID), nil
	}
	for i := range meals {
		meals[i].Image = models.NormalizeImage(meals[i].Image)
	}
	if meals == nil {
		meals = []models.Meal{}
	}
	return meals, nil
}

func normalizeRecipes(recipes []models.Recipe) []models.Recipe {
	if recipes == nil {
		return []models.Recipe{}
	}
	for i := range recipes {
		recipes[i].Image = models.NormalizeImage(recipes[i].Image)
		if recipes[i].Category == "" {
			recipes[i].Category = "Unknown"
		}
		if recipes[i].Duration == "" {
			recipes[i].Duration = "N/A"
		}
	}
	return recipes
}
