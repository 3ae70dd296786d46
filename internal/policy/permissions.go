package policy

import "flavoriz-backend-go/internal/models"

// Permission is the client-facing name of a capability, e.g. "mealPlans.update.all".
type Permission string

const probeUserID = "__self__"

// Permissions lists what an actor with role may do. The list is computed from
// the same rules Authorize evaluates, by probing a plan the actor owns and a
// plan owned by someone else.
func Permissions(role models.Role) []Permission {
	actor := Actor{UserID: probeUserID, Role: role}
	own := &models.MealPlan{OwnerID: probeUserID, IsCustom: true}
	other := &models.MealPlan{OwnerID: probeUserID + "_other", IsCustom: true}

	probes := []struct {
		perm   Permission
		plan   *models.MealPlan
		action Action
	}{
		{"mealPlans.create", nil, ActionCreatePlan},
		{"mealPlans.read.own", own, ActionReadPlan},
		{"mealPlans.read.all", other, ActionReadPlan},
		{"mealPlans.update.own", own, ActionUpdatePlan},
		{"mealPlans.update.all", other, ActionUpdatePlan},
		{"mealPlans.delete.own", own, ActionDeletePlan},
		{"mealPlans.delete.all", other, ActionDeletePlan},
		{"recipes.create", nil, ActionCreateRecipe},
		{"recipes.moderate", nil, ActionModerateRecipes},
		{"users.manage", nil, ActionManageUsers},
		{"admin.access", nil, ActionAccessAdmin},
	}

	perms := make([]Permission, 0, len(probes))
	for _, p := range probes {
		if Allowed(actor, p.plan, p.action) {
			perms = append(perms, p.perm)
		}
	}
	return perms
}

// HasPermission reports whether role grants perm.
func HasPermission(role models.Role, perm Permission) bool {
	for _, p := range Permissions(role) {
		if p == perm {
			return true
		}
	}
	return false
}
