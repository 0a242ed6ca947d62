// Package events defines the task lifecycle notifications published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every task event, keyed by task ID.
const Topic = "workflowhub.tasks"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TaskCreatedEvent          EventType = "task.created"
	TaskSubmittedEvent        EventType = "task.submitted"
	TaskApprovedEvent         EventType = "task.approved"
	TaskAdvancedEvent         EventType = "task.advanced"
	TaskCompletedEvent        EventType = "task.completed"
	TaskRejectedEvent         EventType = "task.rejected"
	TaskApprovalReminderEvent EventType = "task.approval_reminder"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TaskID    string         `json:"taskId"`
	ProcessID string         `json:"processId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TaskCreated struct {
	BaseEvent

	FormID          string `json:"formId"`
	RequesterUserID string `json:"requesterUserId"`
	Status          string `json:"status"`
	StageKey        string `json:"stageKey"`
}

func (e TaskCreated) GetType() EventType {
	return TaskCreatedEvent
}

type TaskSubmitted struct {
	BaseEvent

	ActorUserID string `json:"actorUserId"`
	StageKey    string `json:"stageKey"`
}

func (e TaskSubmitted) GetType() EventType {
	return TaskSubmittedEvent
}

// TaskApproved is published for every recorded approval, including ones
// that leave the task waiting for other approvers.
type TaskApproved struct {
	BaseEvent

	ActorUserID string `json:"actorUserId"`
	StageKey    string `json:"stageKey"`
}

func (e TaskApproved) GetType() EventType {
	return TaskApprovedEvent
}

type TaskAdvanced struct {
	BaseEvent

	FromStageKey     string   `json:"fromStageKey"`
	ToStageKey       string   `json:"toStageKey"`
	PendingApprovers []string `json:"pendingApprovers"`
}

func (e TaskAdvanced) GetType() EventType {
	return TaskAdvancedEvent
}

type TaskCompleted struct {
	BaseEvent

	LastStageKey string `json:"lastStageKey"`
}

func (e TaskCompleted) GetType() EventType {
	return TaskCompletedEvent
}

type TaskRejected struct {
	BaseEvent

	ActorUserID string `json:"actorUserId"`
	StageKey    string `json:"stageKey"`
}

func (e TaskRejected) GetType() EventType {
	return TaskRejectedEvent
}

// TaskApprovalReminder nudges the approvers a task is still waiting on.
type TaskApprovalReminder struct {
	BaseEvent

	StageKey         string    `json:"stageKey"`
	PendingApprovers []string  `json:"pendingApprovers"`
	WaitingSince     time.Time `json:"waitingSince"`
}

func (e TaskApprovalReminder) GetType() EventType {
	return TaskApprovalReminderEvent
}

func NewBaseEvent(eventType EventType, taskID, processID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		ProcessID: processID,
		Metadata:  make(map[string]any),
	}
}

// New returns an empty event of the given type for decoding, or false when
// the type is unknown.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case TaskCreatedEvent:
		return &TaskCreated{}, true
	case TaskSubmittedEvent:
		return &TaskSubmitted{}, true
	case TaskApprovedEvent:
		return &TaskApproved{}, true
	case TaskAdvancedEvent:
		return &TaskAdvanced{}, true
	case TaskCompletedEvent:
		return &TaskCompleted{}, true
	case TaskRejectedEvent:
		return &TaskRejected{}, true
	case TaskApprovalReminderEvent:
		return &TaskApprovalReminder{}, true
	default:
		return nil, false
	}
}
