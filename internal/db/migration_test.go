package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrateLegacyMealPlans(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WriteKey(LocalLegacyMealPlansKey, []map[string]interface{}{
		{
			"id":          "legacy1",
			"userId":      "alice",
			"title":       "Old Week",
			"description": "from an older client",
			"meals": []interface{}{
				map[string]interface{}{"id": "meal1", "title": "Soup", "image": "", "duration": "15 min", "recipeId": "r5"},
			},
			"createdAt": "2023-06-01T10:00:00Z",
			"updatedAt": "2023-06-02T10:00:00Z",
		},
		{"id": "legacy2", "userId": "alice", "title": "Template", "isCustom": false, "image": "/family-dinner.png"},
		{"id": "orphan", "title": "No owner"},
		{"id": "existing", "userId": "alice", "title": "Duplicate"},
	}))
	require.NoError(t, s.WriteKey(LocalMealPlansKey, []map[string]interface{}{
		{"id": "existing", "ownerId": "alice", "title": "Already migrated", "_rev": 4},
	}))

	n, err := s.MigrateLegacyMealPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	legacy, err := s.ReadKey(LocalLegacyMealPlansKey)
	require.NoError(t, err)
	assert.Empty(t, legacy)

	repo := NewMealPlanRepository(s, zap.NewNop())

	plan, err := repo.GetByID(ctx, "legacy1")
	require.NoError(t, err)
	assert.Equal(t, "alice", plan.OwnerID)
	assert.Equal(t, "Old Week", plan.Title)
	assert.True(t, plan.IsCustom)
	assert.Equal(t, "/healthy-meal-prep.png", plan.Image)
	assert.Empty(t, plan.Collaborators)
	require.Len(t, plan.Meals, 1)
	assert.Equal(t, "r5", plan.Meals[0].RecipeID)
	assert.Equal(t, 2023, plan.CreatedAt.Year())
	assert.Equal(t, 2, plan.UpdatedAt.Day())

	template, err := repo.GetByID(ctx, "legacy2")
	require.NoError(t, err)
	assert.False(t, template.IsCustom)
	assert.Equal(t, "/family-dinner.png", template.Image)

	kept, err := repo.GetByID(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, "Already migrated", kept.Title)
	assert.Equal(t, "4", kept.Version)

	_, err = repo.GetByID(ctx, "orphan")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err = s.MigrateLegacyMealPlans(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	local := newTestStore(t)
	remote := newTestStore(t)

	_, err := local.Create(ctx, UsersCollection, "u1", map[string]interface{}{"email": "a@b.c", "createdAt": ServerTimestamp})
	require.NoError(t, err)
	_, err = local.Create(ctx, MealPlansCollection, "p1", map[string]interface{}{"ownerId": "u1", "title": "Local"})
	require.NoError(t, err)
	_, err = local.Create(ctx, SavedMealsCollection, "s1", map[string]interface{}{"userId": "u1", "recipeId": "r1"})
	require.NoError(t, err)

	_, err = remote.Create(ctx, MealPlansCollection, "p1", map[string]interface{}{"ownerId": "u1", "title": "Remote"})
	require.NoError(t, err)

	report, err := Reconcile(ctx, local, remote, false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Copied[UsersCollection])
	assert.Equal(t, 1, report.Copied[SavedMealsCollection])
	assert.Equal(t, 1, report.Skipped[MealPlansCollection])

	got, err := remote.Get(ctx, MealPlansCollection, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Remote", got.Data["title"])

	user, err := remote.Get(ctx, UsersCollection, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@b.c", user.Data["email"])

	report, err = Reconcile(ctx, local, remote, true, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overwritten[MealPlansCollection])

	got, err = remote.Get(ctx, MealPlansCollection, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Local", got.Data["title"])
}
