package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flavoriz-backend-go/internal/metrics"
)

// queryFunc runs a single Firestore query attempt.
type queryFunc func(ctx context.Context, collection string, filters []Filter, orderBy string, desc bool, limit int) ([]*Record, error)

// firestoreDocumentStore implements DocumentStore on top of Cloud Firestore.
type firestoreDocumentStore struct {
	client *firestore.Client
	logger *zap.Logger
	query  queryFunc
}

// NewFirestoreDocumentStore creates a DocumentStore backed by client.
func NewFirestoreDocumentStore(client *firestore.Client, logger *zap.Logger) DocumentStore {
	if client == nil {
		log.Fatal("Firestore client is not initialized for DocumentStore.")
	}
	s := &firestoreDocumentStore{client: client, logger: logger}
	s.query = s.runQuery
	return s
}

func (s *firestoreDocumentStore) Name() string { return "firestore" }

func (s *firestoreDocumentStore) Close() error { return s.client.Close() }

func versionOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// toFirestore swaps ServerTimestamp sentinels for the Firestore transform.
func toFirestore(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

// resolveTimestamps swaps ServerTimestamp sentinels for the commit time of the write.
func resolveTimestamps(data map[string]interface{}, at time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = at
			continue
		}
		out[k] = v
	}
	return out
}

// Create adds a new document. CreatedAt/UpdatedAt should be passed as ServerTimestamp.
func (s *firestoreDocumentStore) Create(ctx context.Context, collection, id string, data map[string]interface{}) (*Record, error) {
	col := s.client.Collection(collection)
	docRef := col.NewDoc()
	if id != "" {
		docRef = col.Doc(id)
	}

	wr, err := docRef.Create(ctx, toFirestore(data))
	if err != nil {
		return nil, createError(collection, docRef.ID, err)
	}

	return &Record{
		ID:      docRef.ID,
		Version: versionOf(wr.UpdateTime),
		Data:    resolveTimestamps(data, wr.UpdateTime),
	}, nil
}

// Get retrieves a document by id. A missing document is (nil, nil).
func (s *firestoreDocumentStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Get operation")
	}
	docSnap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document '%s/%s': %w", collection, id, err)
	}
	return &Record{ID: docSnap.Ref.ID, Version: versionOf(docSnap.UpdateTime), Data: docSnap.Data()}, nil
}

// ListWhere runs q. If Firestore rejects the query for a missing composite index,
// the ordering is dropped, then every filter after the first is applied in
// memory instead. Results are sorted client-side whenever the server did not.
func (s *firestoreDocumentStore) ListWhere(ctx context.Context, collection string, q Query) ([]*Record, error) {
	records, err := s.query(ctx, collection, q.Filters, q.OrderBy, q.Descending, q.Limit)
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, ErrIndexMissing) {
		return nil, err
	}

	if q.OrderBy != "" {
		s.logger.Warn("Ordered query rejected, retrying without orderBy",
			zap.String("collection", collection), zap.String("orderBy", q.OrderBy), zap.Error(err))
		metrics.QueryDegradations.WithLabelValues(collection, "without_order").Inc()

		records, err = s.query(ctx, collection, q.Filters, "", false, 0)
		if err == nil {
			sortRecords(records, q.OrderBy, q.Descending)
			return applyLimit(records, q.Limit), nil
		}
		if !errors.Is(err, ErrIndexMissing) {
			return nil, err
		}
	}

	if len(q.Filters) < 2 {
		return nil, err
	}

	s.logger.Warn("Compound query rejected, retrying with the first filter only",
		zap.String("collection", collection), zap.String("field", q.Filters[0].Field), zap.Error(err))
	metrics.QueryDegradations.WithLabelValues(collection, "single_filter").Inc()

	records, err = s.query(ctx, collection, q.Filters[:1], "", false, 0)
	if err != nil {
		return nil, err
	}
	filtered := records[:0]
	for _, rec := range records {
		if matchesFilters(rec.Data, q.Filters[1:]) {
			filtered = append(filtered, rec)
		}
	}
	sortRecords(filtered, q.OrderBy, q.Descending)
	return applyLimit(filtered, q.Limit), nil
}

func (s *firestoreDocumentStore) runQuery(ctx context.Context, collection string, filters []Filter, orderBy string, desc bool, limit int) ([]*Record, error) {
	query := s.client.Collection(collection).Query
	for _, f := range filters {
		query = query.Where(f.Field, string(f.Op), f.Value)
	}
	if orderBy != "" {
		dir := firestore.Asc
		if desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(orderBy, dir)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []*Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, queryError(collection, err)
		}
		records = append(records, &Record{ID: doc.Ref.ID, Version: versionOf(doc.UpdateTime), Data: doc.Data()})
	}
	return records, nil
}

// Update merges fields into an existing document. With IfVersion the write is
// guarded by a last-update-time precondition.
func (s *firestoreDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}, opts ...UpdateOption) (*WriteResult, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Update operation")
	}
	o := collectUpdateOptions(opts)

	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range toFirestore(fields) {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}

	var preconds []firestore.Precondition
	if o.ifVersion != "" {
		t, err := time.Parse(time.RFC3339Nano, o.ifVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid document version '%s': %w", o.ifVersion, err)
		}
		preconds = append(preconds, firestore.LastUpdateTime(t))
	}

	wr, err := s.client.Collection(collection).Doc(id).Update(ctx, updates, preconds...)
	if err != nil {
		return nil, updateError(collection, id, err)
	}
	return &WriteResult{Version: versionOf(wr.UpdateTime), UpdateTime: wr.UpdateTime.UTC()}, nil
}

// Set replaces the document under id.
func (s *firestoreDocumentStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) (*WriteResult, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Set operation")
	}
	wr, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestore(data))
	if err != nil {
		return nil, fmt.Errorf("failed to set document '%s/%s': %w", collection, id, err)
	}
	return &WriteResult{Version: versionOf(wr.UpdateTime), UpdateTime: wr.UpdateTime.UTC()}, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *firestoreDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return errors.New("id cannot be empty for Delete operation")
	}
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document '%s/%s': %w", collection, id, err)
	}
	return nil
}

func createError(collection, id string, err error) error {
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("document '%s/%s': %w", collection, id, ErrAlreadyExists)
	}
	return fmt.Errorf("failed to create document in '%s': %w", collection, err)
}

// queryError maps FailedPrecondition, which Firestore returns for a query that
// needs a composite index, to ErrIndexMissing.
func queryError(collection string, err error) error {
	if status.Code(err) == codes.FailedPrecondition {
		return fmt.Errorf("%w: %v", ErrIndexMissing, err)
	}
	return fmt.Errorf("failed to iterate documents in '%s': %w", collection, err)
}

// updateError maps a failed LastUpdateTime precondition to ErrVersionConflict.
func updateError(collection, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("document '%s/%s' not found for update: %w", collection, id, ErrNotFound)
	case codes.FailedPrecondition:
		return fmt.Errorf("document '%s/%s': %w", collection, id, ErrVersionConflict)
	}
	return fmt.Errorf("failed to update document '%s/%s': %w", collection, id, err)
}
