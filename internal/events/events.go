package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPayload is returned when an event payload cannot be decoded or
// does not name a job.
var ErrInvalidPayload = errors.New("invalid event payload")

// TaskRequestEvent asks for a background task of Type to be run. The task
// package is not imported here, so Type is a plain string.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// JobID decodes a JobPayload and returns the job it names.
func (e *TaskRequestEvent) JobID() (uuid.UUID, error) {
	var payload JobPayload
	if err := e.UnmarshalPayload(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if payload.JobID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing job_id", ErrInvalidPayload)
	}
	return payload.JobID, nil
}

// NewTaskRequestEvent creates an event of eventType carrying payload as JSON.
func NewTaskRequestEvent(eventType string, payload interface{}) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// JobPayload identifies the generation or download record a task works on.
// The record itself is re-read by the task, so events stay small.
type JobPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// NewJobRequestEvent creates a TaskRequestEvent of eventType for the job with jobID.
func NewJobRequestEvent(eventType string, jobID uuid.UUID) (*TaskRequestEvent, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing job_id", ErrInvalidPayload)
	}
	return NewTaskRequestEvent(eventType, JobPayload{JobID: jobID})
}

// EventHandler processes events delivered by an EventEmitter.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskRequestEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes events to whatever handlers are registered.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
