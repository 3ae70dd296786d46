package models

import "time"

// PlanEvent describes a user-visible change, delivered to the notification sink.
type PlanEvent struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	UserID     string                 `json:"userId"` // Who performed the action
	Action     string                 `json:"action"` // e.g. "PLAN_CREATE", "COLLABORATOR_ADD"
	TargetType string                 `json:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty"`
	Recipients []string               `json:"recipients,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}
