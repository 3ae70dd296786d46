package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL + "/", Timeout: time.Second}, zap.NewNop())
}

func TestSamples(t *testing.T) {
	s := Samples()
	assert.Len(t, s.Recipes, 8)
	assert.Len(t, s.CuratedPlans, 3)
	assert.True(t, s.CuratedPlans[0].Recommended)
	for _, id := range []string{"m1", "m2", "m3"} {
		assert.Len(t, s.Meals(id), 4, id)
		assert.True(t, s.HasPlan(id))
		title, ok := CuratedTitle(id)
		assert.True(t, ok)
		assert.NotEmpty(t, title)
	}
	assert.False(t, s.HasPlan("m9"))
	assert.Equal(t, "/creamy-garlic-pasta-with-parmesan.jpg", s.all()[0].Image)
	assert.Equal(t, "/creamy-garlic-pasta-dish-close-up.jpg", s.detail("r1").Image)
}

func TestSearch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/recipes", r.URL.Path)
			assert.Equal(t, "curry", r.URL.Query().Get("q"))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"id":"x1","title":"Green Curry","image":"null","category":"Thai","duration":"30 min"}]`)
		})

		recipes, err := client.Search(context.Background(), " curry ")
		require.NoError(t, err)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Green Curry", recipes[0].Title)
		assert.Equal(t, "/placeholder.svg", recipes[0].Image)
	})

	t.Run("ServerErrorFallsBack", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		recipes, err := client.Search(context.Background(), "SALAD")
		require.NoError(t, err)
		require.Len(t, recipes, 1)
		assert.Equal(t, "r3", recipes[0].ID)
	})

	t.Run("EmptyTermOffline", func(t *testing.T) {
		client := NewClient(Options{}, zap.NewNop())
		recipes, err := client.Search(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, recipes, 8)
	})
}

func TestGetByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/recipes/abc", r.URL.Path)
			fmt.Fprintln(w, `{"id":"abc","title":"Soup","ingredients":["water"]}`)
		})

		detail, err := client.GetByID(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "Soup", detail.Title)
		assert.Equal(t, "Unknown", detail.Category)
		assert.Equal(t, []string{"water"}, detail.Ingredients)
		assert.NotNil(t, detail.Instructions)
	})

	t.Run("NotFoundFallsBackToSample", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		detail, err := client.GetByID(context.Background(), "r7")
		require.NoError(t, err)
		assert.Equal(t, "Grilled Salmon", detail.Title)
		assert.Len(t, detail.Instructions, 7)
	})

	t.Run("UnknownRecipePlaceholder", func(t *testing.T) {
		client := NewClient(Options{}, zap.NewNop())

		detail, err := client.GetByID(context.Background(), "zzz")
		require.NoError(t, err)
		assert.Equal(t, RecipeNotFound("zzz"), detail)
	})

	t.Run("MalformedBodyFallsBack", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{not json`)
		})

		detail, err := client.GetByID(context.Background(), "r2")
		require.NoError(t, err)
		assert.Equal(t, "Spicy Chicken Curry", detail.Title)
	})
}

func TestCategoriesAndRandomOffline(t *testing.T) {
	client := NewClient(Options{}, zap.NewNop())
	ctx := context.Background()

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Italian", "Indian", "Healthy", "Mexican", "Japanese", "Dessert", "Seafood", "Asian"}, categories)

	italian, err := client.ListByCategory(ctx, "italian")
	require.NoError(t, err)
	require.Len(t, italian, 1)
	assert.Equal(t, "r1", italian[0].ID)

	random, err := client.ListRandom(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, random, 3)

	random, err = client.ListRandom(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, random, 8)

	random, err = client.ListRandom(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, random)
}

func TestCuratedPlans(t *testing.T) {
	t.Run("RemoteMeals", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/meals", r.URL.Path)
			assert.Equal(t, "m2", r.URL.Query().Get("planId"))
			fmt.Fprintln(w, `[{"id":"x","title":"Toast","image":"","duration":"5 min","recipeId":"r9"}]`)
		})

		meals, err := client.MealsForPlan(context.Background(), "m2")
		require.NoError(t, err)
		require.Len(t, meals, 1)
		assert.Equal(t, "/placeholder.svg", meals[0].Image)
	})

	t.Run("Offline", func(t *testing.T) {
		client := NewClient(Options{}, zap.NewNop())
		ctx := context.Background()

		plans, err := client.ListCuratedPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 3)
		assert.Equal(t, "Quick & Easy Meals", plans[1].Title)

		meals, err := client.MealsForPlan(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, meals, 4)
		assert.Equal(t, "r7", meals[0].RecipeID)

		meals, err = client.MealsForPlan(ctx, "unknown")
		require.NoError(t, err)
		assert.Equal(t, MealNotFound(), meals)
	})
}

func TestCanceledContextIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
