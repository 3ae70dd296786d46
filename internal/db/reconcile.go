package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var timestampFields = map[string]bool{"createdAt": true, "updatedAt": true, "savedAt": true}

// ReconcileReport counts what a reconciliation run did per collection.
type ReconcileReport struct {
	Copied      map[string]int
	Skipped     map[string]int
	Overwritten map[string]int
}

func newReconcileReport() *ReconcileReport {
	return &ReconcileReport{
		Copied:      map[string]int{},
		Skipped:     map[string]int{},
		Overwritten: map[string]int{},
	}
}

// Reconcile copies every document held by the local store into remote under
// the same id. Documents that already exist remotely are left alone unless
// overwrite is set.
func Reconcile(ctx context.Context, local *LocalDocumentStore, remote DocumentStore, overwrite bool, logger *zap.Logger) (*ReconcileReport, error) {
	report := newReconcileReport()
	for _, collection := range []string{UsersCollection, MealPlansCollection, SavedMealsCollection} {
		docs, err := local.ReadKey(KeyFor(collection))
		if err != nil {
			return report, fmt.Errorf("read local %s: %w", collection, err)
		}
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			rec := toRecord(doc)
			if rec.ID == "" {
				continue
			}
			data := restoreTimestamps(rec.Data)

			_, err := remote.Create(ctx, collection, rec.ID, data)
			switch {
			case err == nil:
				report.Copied[collection]++
			case errors.Is(err, ErrAlreadyExists) && overwrite:
				if _, err := remote.Set(ctx, collection, rec.ID, data); err != nil {
					return report, fmt.Errorf("overwrite %s/%s: %w", collection, rec.ID, err)
				}
				report.Overwritten[collection]++
			case errors.Is(err, ErrAlreadyExists):
				report.Skipped[collection]++
			default:
				return report, fmt.Errorf("copy %s/%s: %w", collection, rec.ID, err)
			}
		}
		logger.Info("Reconciled collection",
			zap.String("collection", collection),
			zap.Int("copied", report.Copied[collection]),
			zap.Int("skipped", report.Skipped[collection]),
			zap.Int("overwritten", report.Overwritten[collection]))
	}
	return report, nil
}

// restoreTimestamps parses the RFC3339 strings the local store keeps back into time.Time.
func restoreTimestamps(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok && timestampFields[k] {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				out[k] = t
				continue
			}
		}
		out[k] = v
	}
	return out
}
