package db

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
)

// MigrateLegacyMealPlans converts single-user plans left under the legacy key
// into multi-user MealPlan documents. Plans whose id already exists in the
// meal plan collection are skipped. The legacy key is removed afterwards, so
// running the migration again is a no-op. It returns the number of plans moved.
func (s *LocalDocumentStore) MigrateLegacyMealPlans(ctx context.Context) (int, error) {
	migrated := 0
	err := s.update(func(txn *badger.Txn) error {
		migrated = 0
		legacy, err := loadArray(txn, LocalLegacyMealPlansKey)
		if err != nil {
			return err
		}
		if len(legacy) == 0 {
			return nil
		}
		current, err := loadArray(txn, LocalMealPlansKey)
		if err != nil {
			return err
		}

		for _, raw := range legacy {
			var old models.LegacyUserMealPlan
			if err := decodeData(raw, &old, s.now); err != nil {
				s.logger.Warn("Skipping unreadable legacy meal plan", zap.Any("id", raw[localIDField]), zap.Error(err))
				continue
			}
			if old.ID == "" || old.UserID == "" {
				s.logger.Warn("Skipping legacy meal plan without id or owner", zap.Any("id", raw[localIDField]))
				continue
			}
			if indexOf(current, old.ID) >= 0 {
				continue
			}

			plan := upgradeLegacyPlan(old)
			doc := mealPlanFields(plan)
			doc["createdAt"] = plan.CreatedAt
			doc["updatedAt"] = plan.UpdatedAt
			doc[localIDField] = plan.ID
			doc[localRevField] = 1
			normalized, err := normalize(doc)
			if err != nil {
				return err
			}
			current = append(current, normalized)
			migrated++
		}

		if err := saveArray(txn, LocalMealPlansKey, current); err != nil {
			return err
		}
		return txn.Delete([]byte(LocalLegacyMealPlansKey))
	})
	if err != nil {
		return 0, err
	}
	if migrated > 0 {
		s.logger.Info("Migrated legacy meal plans", zap.Int("count", migrated))
	}
	return migrated, nil
}

func upgradeLegacyPlan(old models.LegacyUserMealPlan) *models.MealPlan {
	isCustom := true
	if old.IsCustom != nil {
		isCustom = *old.IsCustom
	}
	image := old.Image
	if image == "" {
		image = models.DefaultMealPlanImage
	}
	meals := old.Meals
	if meals == nil {
		meals = []models.Meal{}
	}
	created := old.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := old.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	return &models.MealPlan{
		ID:            old.ID,
		OwnerID:       old.UserID,
		Title:         old.Title,
		Description:   old.Description,
		Image:         image,
		Meals:         meals,
		Collaborators: []string{},
		IsCustom:      isCustom,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}
