package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/pkg/messagequeue"
)

const testQueue = "flavoriz.plan-events.test"

func TestEventService_Record(t *testing.T) {
	ctx := context.Background()
	queue := messagequeue.NewMemoryQueue()
	t.Cleanup(func() { _ = queue.Close() })
	events := NewEventService(queue, testQueue, zap.NewNop())

	require.NoError(t, events.Record(ctx, models.PlanEvent{UserID: "alice", Action: ActionPlanCreate, TargetID: "p1"}))

	got := make(chan models.PlanEvent, 1)
	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = queue.Consume(consumeCtx, testQueue, func(_ context.Context, body []byte) error {
			var e models.PlanEvent
			if err := json.Unmarshal(body, &e); err != nil {
				return err
			}
			got <- e
			return nil
		})
	}()

	select {
	case e := <-got:
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, ActionPlanCreate, e.Action)
		assert.Equal(t, "p1", e.TargetID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventService_ClosedQueue(t *testing.T) {
	queue := messagequeue.NewMemoryQueue()
	require.NoError(t, queue.Close())

	err := NewEventService(queue, testQueue, zap.NewNop()).Record(context.Background(), models.PlanEvent{Action: ActionPlanDelete})
	assert.ErrorIs(t, err, messagequeue.ErrClosed)
}

func invitationEvent() models.PlanEvent {
	return models.PlanEvent{
		ID:       "e1",
		UserID:   "alice",
		Action:   ActionCollaboratorAdd,
		TargetID: "plan-1",
		Details: map[string]interface{}{
			"inviteeEmail": "bob@example.com",
			"planTitle":    "Dinner <Club>",
			"inviterName":  "Alice",
		},
	}
}

func TestNotifier_SendsInvitation(t *testing.T) {
	mail := &recordingMailer{}
	n := NewNotifier(messagequeue.NewMemoryQueue(), testQueue, mail, "https://flavoriz.app/", zap.NewNop())

	body, err := json.Marshal(invitationEvent())
	require.NoError(t, err)
	require.NoError(t, n.handle(context.Background(), body))

	sent := mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@example.com", sent[0].To)
	assert.Equal(t, `You've been invited to "Dinner <Club>"`, sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Dinner &lt;Club&gt;")
	assert.Contains(t, sent[0].Body, "https://flavoriz.app/meal-plans/plan-1")
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	mail := &recordingMailer{}
	n := NewNotifier(messagequeue.NewMemoryQueue(), testQueue, mail, "", zap.NewNop())

	body, err := json.Marshal(models.PlanEvent{Action: ActionMealAdd, TargetID: "p"})
	require.NoError(t, err)
	require.NoError(t, n.handle(context.Background(), body))

	noEmail := invitationEvent()
	delete(noEmail.Details, "inviteeEmail")
	body, err = json.Marshal(noEmail)
	require.NoError(t, err)
	require.NoError(t, n.handle(context.Background(), body))

	assert.Empty(t, mail.messages())
}

func TestNotifier_MalformedAndMailFailure(t *testing.T) {
	mail := &recordingMailer{err: errors.New("relay down")}
	n := NewNotifier(messagequeue.NewMemoryQueue(), testQueue, mail, "", zap.NewNop())

	assert.Error(t, n.handle(context.Background(), []byte("{not json")))

	body, err := json.Marshal(invitationEvent())
	require.NoError(t, err)
	assert.NoError(t, n.handle(context.Background(), body), "mail failures are logged, not redelivered")
}

func TestNotifier_Run(t *testing.T) {
	queue := messagequeue.NewMemoryQueue()
	mail := &recordingMailer{}
	n := NewNotifier(queue, testQueue, mail, "http://localhost:3000", zap.NewNop())
	events := NewEventService(queue, testQueue, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.NoError(t, events.Record(ctx, invitationEvent()))
	assert.Eventually(t, func() bool { return len(mail.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop")
	}
}
