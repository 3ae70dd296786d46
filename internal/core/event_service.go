package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/pkg/messagequeue"
)

// Plan event actions.
const (
	ActionPlanCreate         = "PLAN_CREATE"
	ActionPlanUpdate         = "PLAN_UPDATE"
	ActionPlanDelete         = "PLAN_DELETE"
	ActionPlanDuplicate      = "PLAN_DUPLICATE"
	ActionMealAdd            = "MEAL_ADD"
	ActionMealRemove         = "MEAL_REMOVE"
	ActionCollaboratorAdd    = "COLLABORATOR_ADD"
	ActionCollaboratorRemove = "COLLABORATOR_REMOVE"
	ActionMealSave           = "MEAL_SAVE"
	ActionMealUnsave         = "MEAL_UNSAVE"
)

// Plan event target types.
const (
	TargetMealPlan = "MEAL_PLAN"
	TargetRecipe   = "RECIPE"
)

// eventService implements EventService by publishing JSON to a queue.
type eventService struct {
	queue     messagequeue.MessageQueue
	queueName string
	logger    *zap.Logger
}

// NewEventService creates an EventService publishing to queueName.
func NewEventService(queue messagequeue.MessageQueue, queueName string, logger *zap.Logger) EventService {
	if queue == nil {
		log.Fatal("MessageQueue is not initialized for EventService.")
	}
	return &eventService{queue: queue, queueName: queueName, logger: logger}
}

// Record stamps the event with an id and time and publishes it.
func (s *eventService) Record(ctx context.Context, event models.PlanEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode plan event: %w", err)
	}
	if err := s.queue.Publish(ctx, s.queueName, body); err != nil {
		return fmt.Errorf("failed to publish plan event %s: %w", event.Action, err)
	}
	return nil
}

// recordEvent publishes an event without failing the calling operation.
func recordEvent(ctx context.Context, events EventService, logger *zap.Logger, event models.PlanEvent) {
	if events == nil {
		return
	}
	if err := events.Record(ctx, event); err != nil {
		logger.Warn("Failed to record plan event",
			zap.String("action", event.Action),
			zap.String("targetID", event.TargetID),
			zap.Error(err))
	}
}
