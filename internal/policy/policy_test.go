package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flavoriz-backend-go/internal/models"
)

func plan(owner string, collaborators ...string) *models.MealPlan {
	return &models.MealPlan{ID: "p1", OwnerID: owner, Collaborators: collaborators, IsCustom: true}
}

func TestHasRole(t *testing.T) {
	user := Actor{UserID: "u", Role: models.RoleUser}
	mod := Actor{UserID: "m", Role: models.RoleModerator}
	admin := Actor{UserID: "a", Role: models.RoleAdmin}

	assert.True(t, HasRole(user, models.RoleUser))
	assert.False(t, HasRole(user, models.RoleModerator))
	assert.True(t, HasRole(mod, models.RoleModerator))
	assert.False(t, HasRole(mod, models.RoleAdmin))
	assert.True(t, HasRole(admin, models.RoleModerator))
	assert.False(t, HasRole(Anonymous(), models.RoleUser))

	// Missing role ranks as user.
	assert.True(t, HasRole(Actor{UserID: "x"}, models.RoleUser))
	assert.False(t, HasRole(Actor{UserID: "x", Role: "superuser"}, models.RoleModerator))
}

func TestAuthorize_PlanActions(t *testing.T) {
	owner := Actor{UserID: "owner", Role: models.RoleUser}
	collab := Actor{UserID: "collab", Role: models.RoleUser}
	stranger := Actor{UserID: "stranger", Role: models.RoleModerator}
	admin := Actor{UserID: "admin", Role: models.RoleAdmin}
	p := plan("owner", "collab")

	tests := []struct {
		name   string
		actor  Actor
		action Action
		allow  bool
	}{
		{"owner reads", owner, ActionReadPlan, true},
		{"collaborator reads", collab, ActionReadPlan, true},
		{"moderator stranger cannot read", stranger, ActionReadPlan, false},
		{"admin reads", admin, ActionReadPlan, true},
		{"anonymous cannot read custom plan", Anonymous(), ActionReadPlan, false},

		{"owner updates", owner, ActionUpdatePlan, true},
		{"collaborator cannot update", collab, ActionUpdatePlan, false},
		{"admin updates", admin, ActionUpdatePlan, true},

		{"owner deletes", owner, ActionDeletePlan, true},
		{"collaborator cannot delete", collab, ActionDeletePlan, false},
		{"admin deletes", admin, ActionDeletePlan, true},

		{"collaborator adds meal", collab, ActionAddMeal, true},
		{"collaborator removes meal", collab, ActionRemoveMeal, true},
		{"stranger cannot add meal", stranger, ActionAddMeal, false},
		{"admin adds meal", admin, ActionAddMeal, true},

		{"owner manages collaborators", owner, ActionManageCollaborators, true},
		{"admin cannot manage collaborators", admin, ActionManageCollaborators, false},
		{"collaborator cannot manage collaborators", collab, ActionManageCollaborators, false},

		{"collaborator duplicates", collab, ActionDuplicatePlan, true},
		{"stranger cannot duplicate", stranger, ActionDuplicatePlan, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, p, tt.action)
			if tt.allow {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAuthorize_UnauthenticatedMutation(t *testing.T) {
	err := Authorize(Anonymous(), plan("owner"), ActionUpdatePlan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = Authorize(Anonymous(), nil, ActionCreatePlan)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorize_CuratedPlan(t *testing.T) {
	curated := &models.MealPlan{ID: "m1", IsCustom: false}

	assert.NoError(t, Authorize(Anonymous(), curated, ActionReadPlan))
	assert.NoError(t, Authorize(Actor{UserID: "u"}, curated, ActionDuplicatePlan))
	assert.ErrorIs(t, Authorize(Actor{UserID: "u", Role: models.RoleAdmin}, curated, ActionUpdatePlan), ErrDenied)
	assert.ErrorIs(t, Authorize(Actor{UserID: "u"}, curated, ActionAddMeal), ErrDenied)
}

func TestAuthorize_UnknownAction(t *testing.T) {
	assert.ErrorIs(t, Authorize(Actor{UserID: "u"}, nil, Action("plan.archive")), ErrUnknownAction)
}

func TestPermissions(t *testing.T) {
	assert.Equal(t, []Permission{
		"mealPlans.create",
		"mealPlans.read.own",
		"mealPlans.update.own",
		"mealPlans.delete.own",
	}, Permissions(models.RoleUser))

	mod := Permissions(models.RoleModerator)
	assert.Contains(t, mod, Permission("recipes.moderate"))
	assert.Contains(t, mod, Permission("recipes.create"))
	assert.NotContains(t, mod, Permission("mealPlans.update.all"))
	assert.NotContains(t, mod, Permission("users.manage"))

	admin := Permissions(models.RoleAdmin)
	assert.Len(t, admin, 11)
	assert.True(t, HasPermission(models.RoleAdmin, "users.manage"))
	assert.False(t, HasPermission(models.RoleUser, "admin.access"))
}
