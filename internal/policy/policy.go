// Package policy decides what an actor may do with a meal plan or with the
// application at large. It is the only place permission rules live: the
// services enforce through Authorize and the API derives the permission list
// it shows to clients from Permissions.
package policy

import (
	"errors"
	"fmt"

	"flavoriz-backend-go/internal/models"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreatePlan          Action = "plan.create"
	ActionReadPlan            Action = "plan.read"
	ActionUpdatePlan          Action = "plan.update"
	ActionDeletePlan          Action = "plan.delete"
	ActionAddMeal             Action = "plan.addMeal"
	ActionRemoveMeal          Action = "plan.removeMeal"
	ActionDuplicatePlan       Action = "plan.duplicate"
	ActionManageCollaborators Action = "plan.manageCollaborators"
	ActionCreateRecipe        Action = "recipes.create"
	ActionModerateRecipes     Action = "recipes.moderate"
	ActionManageUsers         Action = "users.manage"
	ActionAccessAdmin         Action = "admin.access"
)

var (
	// ErrUnauthenticated is returned when an action requires an identity and the actor has none.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrDenied is returned when the actor is known but not allowed to perform the action.
	ErrDenied = errors.New("permission denied")
	// ErrUnknownAction is returned for actions without a rule.
	ErrUnknownAction = errors.New("unknown action")
)

// Actor is the identity a request is performed as. The zero value is anonymous.
type Actor struct {
	UserID      string
	Email       string
	DisplayName string
	Role        models.Role
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor { return Actor{} }

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool { return a.UserID != "" }

// HasRole reports whether the actor's role ranks at or above required.
func HasRole(a Actor, required models.Role) bool {
	if !a.Authenticated() {
		return false
	}
	return a.Role.Rank() >= required.Rank()
}

func isOwner(a Actor, p *models.MealPlan) bool {
	return p != nil && a.Authenticated() && p.OwnerID == a.UserID
}

func isCollaborator(a Actor, p *models.MealPlan) bool {
	return p != nil && a.Authenticated() && p.HasCollaborator(a.UserID)
}

func canRead(a Actor, p *models.MealPlan) bool {
	if p == nil {
		return false
	}
	// Curated plans are public templates.
	if !p.IsCustom {
		return true
	}
	return isOwner(a, p) || isCollaborator(a, p) || HasRole(a, models.RoleAdmin)
}

// rule evaluates one action. requiresIdentity short-circuits to ErrUnauthenticated.
type rule struct {
	requiresIdentity bool
	allow            func(a Actor, p *models.MealPlan) bool
}

// mutable reports whether p can be modified at all. Curated plans are read-only.
func mutable(p *models.MealPlan) bool {
	return p != nil && p.IsCustom
}

var rules = map[Action]rule{
	ActionCreatePlan: {requiresIdentity: true, allow: func(a Actor, _ *models.MealPlan) bool { return true }},
	ActionReadPlan:   {allow: canRead},
	ActionUpdatePlan: {requiresIdentity: true, allow: func(a Actor, p *models.MealPlan) bool {
		return mutable(p) && (isOwner(a, p) || HasRole(a, models.RoleAdmin))
	}},
	ActionDeletePlan: {requiresIdentity: true, allow: func(a Actor, p *models.MealPlan) bool {
		return mutable(p) && (isOwner(a, p) || HasRole(a, models.RoleAdmin))
	}},
	ActionAddMeal: {requiresIdentity: true, allow: func(a Actor, p *models.MealPlan) bool {
		return mutable(p) && (isOwner(a, p) || isCollaborator(a, p) || HasRole(a, models.RoleAdmin))
	}},
	ActionRemoveMeal: {requiresIdentity: true, allow: func(a Actor, p *models.MealPlan) bool {
		return mutable(p) && (isOwner(a, p) || isCollaborator(a, p) || HasRole(a, models.RoleAdmin))
	}},
	ActionDuplicatePlan: {requiresIdentity: true, allow: canRead},
	// Collaborator management stays with the owner; admins cannot override it.
	ActionManageCollaborators: {requiresIdentity: true, allow: func(a Actor, p *models.MealPlan) bool {
		return mutable(p) && isOwner(a, p)
	}},
	ActionCreateRecipe: {requiresIdentity: true, allow: func(a Actor, _ *models.MealPlan) bool {
		return HasRole(a, models.RoleModerator)
	}},
	ActionModerateRecipes: {requiresIdentity: true, allow: func(a Actor, _ *models.MealPlan) bool {
		return HasRole(a, models.RoleModerator)
	}},
	ActionManageUsers: {requiresIdentity: true, allow: func(a Actor, _ *models.MealPlan) bool {
		return HasRole(a, models.RoleAdmin)
	}},
	ActionAccessAdmin: {requiresIdentity: true, allow: func(a Actor, _ *models.MealPlan) bool {
		return HasRole(a, models.RoleAdmin)
	}},
}

// Authorize returns nil when actor may perform action on plan. plan may be nil
// for actions that are not about a specific plan.
func Authorize(actor Actor, plan *models.MealPlan, action Action) error {
	r, ok := rules[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if r.requiresIdentity && !actor.Authenticated() {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, action)
	}
	if !r.allow(actor, plan) {
		return fmt.Errorf("%w: %s", ErrDenied, action)
	}
	return nil
}

// Allowed is Authorize as a predicate.
func Allowed(actor Actor, plan *models.MealPlan, action Action) bool {
	return Authorize(actor, plan, action) == nil
}
