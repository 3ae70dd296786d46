package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed keys under which the local store keeps each collection as one JSON array.
const (
	LocalMealPlansKey       = "flavoriz_meal_plans"
	LocalSavedMealsKey      = "flavoriz_saved_meals"
	LocalUsersKey           = "flavoriz_users"
	LocalLegacyMealPlansKey = "flavoriz_user_meal_plans"
)

var localCollectionKeys = map[string]string{
	MealPlansCollection:  LocalMealPlansKey,
	SavedMealsCollection: LocalSavedMealsKey,
	UsersCollection:      LocalUsersKey,
}

// Reserved fields stored next to the document data.
const (
	localIDField  = "id"
	localRevField = "_rev"
)

const maxTxnRetries = 5

// LocalStoreConfig configures the embedded fallback store.
type LocalStoreConfig struct {
	// Path is the Badger directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// GCInterval is how often the value log is garbage collected. Zero disables GC.
	GCInterval time.Duration
	// Clock supplies write timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// LocalDocumentStore implements DocumentStore on an embedded Badger database.
// Each collection is a single JSON array under a fixed key, rewritten as a
// whole on every write.
type LocalDocumentStore struct {
	db     *badger.DB
	logger *zap.Logger
	now    func() time.Time

	stopGC chan struct{}
	gcDone chan struct{}
}

// zapBadgerLogger adapts zap to badger.Logger.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapBadgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l *zapBadgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l *zapBadgerLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l *zapBadgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// OpenLocalStore opens (or creates) the local fallback store.
func OpenLocalStore(cfg LocalStoreConfig, logger *zap.Logger) (*LocalDocumentStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent local store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create local store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&zapBadgerLogger{sugar: logger.Named("badger").Sugar()})

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	s := &LocalDocumentStore{db: bdb, logger: logger, now: now}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

func (s *LocalDocumentStore) runGC(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("Local store value log GC failed", zap.Error(err))
			}
		}
	}
}

func (s *LocalDocumentStore) Name() string { return "local" }

// Close stops GC and closes the database.
func (s *LocalDocumentStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	return s.db.Close()
}

// KeyFor returns the fixed storage key of a collection.
func KeyFor(collection string) string {
	if key, ok := localCollectionKeys[collection]; ok {
		return key
	}
	return "flavoriz_" + collection
}

func loadArray(txn *badger.Txn, key string) ([]map[string]interface{}, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", key, err)
	}
	var docs []map[string]interface{}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("decode key %s: %w", key, err)
	}
	return docs, nil
}

func saveArray(txn *badger.Txn, key string, docs []map[string]interface{}) error {
	if docs == nil {
		docs = []map[string]interface{}{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode key %s: %w", key, err)
	}
	return txn.Set([]byte(key), raw)
}

// update runs fn in a read-write transaction, retrying on Badger write conflicts.
func (s *LocalDocumentStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// normalize round-trips a document through JSON so callers see the same
// shapes they would get from a later Get.
func normalize(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LocalDocumentStore) resolve(data map[string]interface{}, at time.Time) map[string]interface{} {
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

func revisionOf(doc map[string]interface{}) int {
	switch v := doc[localRevField].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func toRecord(doc map[string]interface{}) *Record {
	data := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == localIDField || k == localRevField {
			continue
		}
		data[k] = v
	}
	id, _ := doc[localIDField].(string)
	return &Record{ID: id, Version: strconv.Itoa(revisionOf(doc)), Data: data}
}

func indexOf(docs []map[string]interface{}, id string) int {
	for i, d := range docs {
		if d[localIDField] == id {
			return i
		}
	}
	return -1
}

func newLocalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// Create appends a document to the collection array.
func (s *LocalDocumentStore) Create(ctx context.Context, collection, id string, data map[string]interface{}) (*Record, error) {
	if id == "" {
		id = newLocalID()
	}
	key := KeyFor(collection)
	now := s.now().UTC()

	var created map[string]interface{}
	err := s.update(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, key)
		if err != nil {
			return err
		}
		if indexOf(docs, id) >= 0 {
			return fmt.Errorf("document '%s/%s': %w", collection, id, ErrAlreadyExists)
		}
		doc := s.resolve(data, now)
		doc[localIDField] = id
		doc[localRevField] = 1
		if created, err = normalize(doc); err != nil {
			return err
		}
		return saveArray(txn, key, append(docs, created))
	})
	if err != nil {
		return nil, err
	}
	return toRecord(created), nil
}

// Get returns (nil, nil) when the document does not exist.
func (s *LocalDocumentStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Get operation")
	}
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, KeyFor(collection))
		if err != nil {
			return err
		}
		if i := indexOf(docs, id); i >= 0 {
			rec = toRecord(docs[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListWhere scans the collection array. Every filter is applied in memory.
func (s *LocalDocumentStore) ListWhere(ctx context.Context, collection string, q Query) ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, KeyFor(collection))
		if err != nil {
			return err
		}
		for _, d := range docs {
			if matchesFilters(d, q.Filters) {
				records = append(records, toRecord(d))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(records, q.OrderBy, q.Descending)
	return applyLimit(records, q.Limit), nil
}

// Update merges fields into the stored document and bumps its revision.
func (s *LocalDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}, opts ...UpdateOption) (*WriteResult, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Update operation")
	}
	o := collectUpdateOptions(opts)
	key := KeyFor(collection)
	now := s.now().UTC()

	var result *WriteResult
	err := s.update(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, key)
		if err != nil {
			return err
		}
		i := indexOf(docs, id)
		if i < 0 {
			return fmt.Errorf("document '%s/%s' not found for update: %w", collection, id, ErrNotFound)
		}
		rev := revisionOf(docs[i])
		if o.ifVersion != "" && o.ifVersion != strconv.Itoa(rev) {
			return fmt.Errorf("document '%s/%s': %w", collection, id, ErrVersionConflict)
		}
		merged := docs[i]
		for k, v := range s.resolve(fields, now) {
			merged[k] = v
		}
		merged[localRevField] = rev + 1
		if docs[i], err = normalize(merged); err != nil {
			return err
		}
		result = &WriteResult{Version: strconv.Itoa(rev + 1), UpdateTime: now}
		return saveArray(txn, key, docs)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Set replaces the document under id, creating it when missing.
func (s *LocalDocumentStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) (*WriteResult, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for Set operation")
	}
	key := KeyFor(collection)
	now := s.now().UTC()

	var result *WriteResult
	err := s.update(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, key)
		if err != nil {
			return err
		}
		doc := s.resolve(data, now)
		doc[localIDField] = id
		rev := 1
		i := indexOf(docs, id)
		if i >= 0 {
			rev = revisionOf(docs[i]) + 1
		}
		doc[localRevField] = rev
		normalized, err := normalize(doc)
		if err != nil {
			return err
		}
		if i >= 0 {
			docs[i] = normalized
		} else {
			docs = append(docs, normalized)
		}
		result = &WriteResult{Version: strconv.Itoa(rev), UpdateTime: now}
		return saveArray(txn, key, docs)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *LocalDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return errors.New("id cannot be empty for Delete operation")
	}
	key := KeyFor(collection)
	return s.update(func(txn *badger.Txn) error {
		docs, err := loadArray(txn, key)
		if err != nil {
			return err
		}
		i := indexOf(docs, id)
		if i < 0 {
			return nil
		}
		return saveArray(txn, key, append(docs[:i], docs[i+1:]...))
	})
}

// ReadKey returns the raw documents stored under key.
func (s *LocalDocumentStore) ReadKey(key string) ([]map[string]interface{}, error) {
	var docs []map[string]interface{}
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		docs, err = loadArray(txn, key)
		return err
	})
	return docs, err
}

// WriteKey replaces the raw documents stored under key.
func (s *LocalDocumentStore) WriteKey(key string, docs []map[string]interface{}) error {
	return s.update(func(txn *badger.Txn) error {
		return saveArray(txn, key, docs)
	})
}
