package core

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"flavoriz-backend-go/internal/models"
	"flavoriz-backend-go/pkg/mailer"
	"flavoriz-backend-go/pkg/messagequeue"
)

// Notifier consumes plan events. Every event is logged; collaborator
// invitations are also e-mailed to the invitee.
type Notifier struct {
	queue     messagequeue.MessageQueue
	queueName string
	mailer    mailer.Mailer
	clientURL string
	logger    *zap.Logger
}

// NewNotifier creates a Notifier. clientURL is the web client origin used in links.
func NewNotifier(queue messagequeue.MessageQueue, queueName string, m mailer.Mailer, clientURL string, logger *zap.Logger) *Notifier {
	return &Notifier{
		queue:     queue,
		queueName: queueName,
		mailer:    m,
		clientURL: strings.TrimRight(clientURL, "/"),
		logger:    logger,
	}
}

// Run blocks until ctx is canceled or the queue is closed.
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.Info("Notifier consuming plan events", zap.String("queue", n.queueName))
	return n.queue.Consume(ctx, n.queueName, n.handle)
}

func (n *Notifier) handle(ctx context.Context, body []byte) error {
	var event models.PlanEvent
	if err := json.Unmarshal(body, &event); err != nil {
		n.logger.Error("Discarding malformed plan event", zap.Error(err))
		return fmt.Errorf("decode plan event: %w", err)
	}

	n.logger.Info("Plan event",
		zap.String("eventID", event.ID),
		zap.String("action", event.Action),
		zap.String("userID", event.UserID),
		zap.String("targetID", event.TargetID),
		zap.String("message", event.Message))

	if event.Action != ActionCollaboratorAdd || n.mailer == nil {
		return nil
	}
	msg, ok := n.invitation(event)
	if !ok {
		return nil
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		// The invitation is a courtesy; the collaborator was already added.
		n.logger.Warn("Failed to send collaborator invitation",
			zap.String("planID", event.TargetID), zap.String("to", msg.To), zap.Error(err))
	}
	return nil
}

func (n *Notifier) invitation(event models.PlanEvent) (mailer.Message, bool) {
	to, _ := event.Details["inviteeEmail"].(string)
	if to == "" {
		return mailer.Message{}, false
	}
	title, _ := event.Details["planTitle"].(string)
	inviter, _ := event.Details["inviterName"].(string)
	if inviter == "" {
		inviter = "A Flavoriz user"
	}

	link := fmt.Sprintf("%s/meal-plans/%s", n.clientURL, event.TargetID)
	body := fmt.Sprintf("<p>%s invited you to collaborate on the meal plan <strong>%s</strong>.</p>"+
		"<p><a href=\"%s\">Open the meal plan</a></p>",
		html.EscapeString(inviter), html.EscapeString(title), html.EscapeString(link))

	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("You've been invited to \"%s\"", title),
		Body:    body,
	}, true
}
