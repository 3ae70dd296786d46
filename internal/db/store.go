package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Collection names shared by both store implementations.
const (
	MealPlansCollection  = "mealPlans"
	SavedMealsCollection = "savedMeals"
	UsersCollection      = "users"
)

var (
	// ErrNotFound is returned when a document is not found.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned when creating a document under an id that is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrVersionConflict is returned by a conditional update when the document changed since it was read.
	ErrVersionConflict = errors.New("document was modified concurrently")
	// ErrIndexMissing marks a query the remote store refused for lack of a composite index.
	ErrIndexMissing = errors.New("query requires a missing index")
	// ErrNotConfigured is returned when the remote store has no project configured.
	ErrNotConfigured = errors.New("remote document store is not configured")
)

type serverTimestamp struct{}

// ServerTimestamp can be used as a field value in Create, Set and Update. The
// store replaces it with its own authoritative write time.
var ServerTimestamp = serverTimestamp{}

// Op is a query predicate operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter is a single predicate on a top-level field.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds an equality filter.
func Where(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// ArrayContains builds an array-membership filter.
func ArrayContains(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Query describes a ListWhere call. OrderBy is optional; results are always
// returned in OrderBy order when it is set, whichever path produced them.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Record is a stored document. Data holds every field except the id.
type Record struct {
	ID      string
	Version string
	Data    map[string]interface{}
}

// WriteResult describes a completed write.
type WriteResult struct {
	Version    string
	UpdateTime time.Time
}

type updateOptions struct {
	ifVersion string
}

// UpdateOption configures an Update call.
type UpdateOption func(*updateOptions)

// IfVersion makes an update conditional on the document still being at version.
// An empty version disables the check.
func IfVersion(version string) UpdateOption {
	return func(o *updateOptions) { o.ifVersion = version }
}

func collectUpdateOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DocumentStore is a generic collection-oriented document store.
type DocumentStore interface {
	// Create stores data under id, or under a generated id when id is empty.
	Create(ctx context.Context, collection, id string, data map[string]interface{}) (*Record, error)
	// Get returns (nil, nil) when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Record, error)
	ListWhere(ctx context.Context, collection string, q Query) ([]*Record, error)
	// Update merges fields into an existing document without touching other fields.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}, opts ...UpdateOption) (*WriteResult, error)
	// Set replaces a document, creating it if needed.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) (*WriteResult, error)
	Delete(ctx context.Context, collection, id string) error
	// Name identifies the backend in logs ("firestore" or "local").
	Name() string
	Close() error
}

// matchesFilters evaluates filters against a decoded document.
func matchesFilters(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !valuesEqual(v, f.Value) {
				return false
			}
		case OpArrayContains:
			items, ok := v.([]interface{})
			if !ok {
				if strs, isStrs := v.([]string); isStrs {
					for _, s := range strs {
						items = append(items, s)
					}
				} else {
					return false
				}
			}
			found := false
			for _, item := range items {
				if valuesEqual(item, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// valuesEqual compares a stored value with a filter value. Strings only match
// strings, and numbers compare by value since decoded JSON yields float64.
func valuesEqual(a, b interface{}) bool {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// sortRecords orders records by field. Time-like values (time.Time or RFC3339
// strings) compare chronologically, everything else compares as text.
func sortRecords(records []*Record, field string, descending bool) {
	if field == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := compareValues(records[i].Data[field], records[j].Data[field])
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b interface{}) int {
	ta, aok := asTime(a)
	tb, bok := asTime(b)
	if aok && bok {
		return ta.Compare(tb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func applyLimit(records []*Record, limit int) []*Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
