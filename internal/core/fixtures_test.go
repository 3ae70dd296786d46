package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/catalog"
	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/internal/policy"
	"flavoriz-backend-go/pkg/mailer"
)

// testRepos bundles repositories over one in-memory local store.
type testRepos struct {
	store *db.LocalDocumentStore
	plans db.MealPlanRepository
	users db.UserRepository
	saved db.SavedMealRepository
}

// newTestRepos opens an in-memory store whose clock advances one second per write,
// so updatedAt ordering is deterministic.
func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	var mu sync.Mutex
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store, err := db.OpenLocalStore(db.LocalStoreConfig{
		InMemory: true,
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := zap.NewNop()
	return &testRepos{
		store: store,
		plans: db.NewMealPlanRepository(store, logger),
		users: db.NewUserRepository(store, logger),
		saved: db.NewSavedMealRepository(store, logger),
	}
}

func (r *testRepos) seedUser(t *testing.T, id, email, name string, role models.Role) policy.Actor {
	t.Helper()
	_, err := r.users.Create(context.Background(), &models.UserProfile{ID: id, Email: email, DisplayName: name, Role: role})
	require.NoError(t, err)
	return policy.Actor{UserID: id, Email: email, DisplayName: name, Role: role}
}

// offlineCatalog answers every call from the built-in sample set.
func offlineCatalog() catalog.Client {
	return catalog.NewClient(catalog.Options{}, zap.NewNop())
}

// recordingEvents captures recorded events.
type recordingEvents struct {
	mu     sync.Mutex
	events []models.PlanEvent
	err    error
}

func (r *recordingEvents) Record(_ context.Context, e models.PlanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingEvents) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingEvents) last() models.PlanEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// recordingMailer captures sent messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}
