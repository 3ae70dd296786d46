package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
)

func TestSavedMeals(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	events := &recordingEvents{}
	svc := NewSavedMealService(repos.saved, events, zap.NewNop())
	alice := policy.Actor{UserID: "alice"}
	bob := policy.Actor{UserID: "bob"}

	pasta := models.RecipeDetail{ID: "r1", Title: "Creamy Garlic Pasta", Image: "null", Ingredients: []string{"pasta"}}
	salad := models.RecipeDetail{ID: "r3", Title: "Fresh Garden Salad", Image: "/salad.png", Category: "Vegetarian", Duration: "10 min"}

	saved, err := svc.SaveMeal(ctx, alice, pasta)
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.UserID)
	assert.Equal(t, "r1", saved.RecipeID)
	assert.Equal(t, models.PlaceholderImage, saved.Recipe.Image)
	assert.Equal(t, "Unknown", saved.Recipe.Category)
	assert.Equal(t, "N/A", saved.Recipe.Duration)
	assert.NotNil(t, saved.Recipe.Instructions)
	assert.Equal(t, []string{ActionMealSave}, events.actions())
	assert.Equal(t, TargetRecipe, events.last().TargetType)
	assert.Equal(t, "r1", events.last().TargetID)

	_, err = svc.SaveMeal(ctx, alice, salad)
	require.NoError(t, err)

	t.Run("IsSaved", func(t *testing.T) {
		assert.True(t, svc.IsSaved(ctx, alice, "r1"))
		assert.False(t, svc.IsSaved(ctx, bob, "r1"))
		assert.False(t, svc.IsSaved(ctx, policy.Anonymous(), "r1"))
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		list, err := svc.ListSaved(ctx, alice)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "r3", list[0].RecipeID)
		assert.Equal(t, "r1", list[1].RecipeID)

		empty, err := svc.ListSaved(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Unsave", func(t *testing.T) {
		require.NoError(t, svc.UnsaveMeal(ctx, alice, "r1"))
		assert.False(t, svc.IsSaved(ctx, alice, "r1"))
		assert.ErrorIs(t, svc.UnsaveMeal(ctx, alice, "r1"), ErrSavedMealNotFound)
	})

	t.Run("UnsaveClearsDuplicates", func(t *testing.T) {
		_, err := svc.SaveMeal(ctx, bob, salad)
		require.NoError(t, err)
		_, err = svc.SaveMeal(ctx, bob, salad)
		require.NoError(t, err)

		require.NoError(t, svc.UnsaveMeal(ctx, bob, "r3"))
		assert.False(t, svc.IsSaved(ctx, bob, "r3"))
	})

	t.Run("RequiresActor", func(t *testing.T) {
		_, err := svc.SaveMeal(ctx, policy.Anonymous(), salad)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, svc.UnsaveMeal(ctx, policy.Anonymous(), "r3"), ErrUnauthenticated)
		_, err = svc.ListSaved(ctx, policy.Anonymous())
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("RequiresRecipeID", func(t *testing.T) {
		_, err := svc.SaveMeal(ctx, alice, models.RecipeDetail{Title: "No id"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSavedMeals_TitleDefaultedOnRead(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewSavedMealService(repos.saved, nil, zap.NewNop())
	alice := policy.Actor{UserID: "alice"}

	_, err := svc.SaveMeal(ctx, alice, models.RecipeDetail{ID: "r5"})
	require.NoError(t, err)

	list, err := svc.ListSaved(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Unknown Recipe", list[0].Recipe.Title)
	assert.Equal(t, "r5", list[0].Recipe.ID)
}
