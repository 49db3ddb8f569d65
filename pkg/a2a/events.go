package a2a

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event discriminators used on the wire (SSE event names) and in event
// envelopes.
const (
	EventTypeStatusUpdate   = "task_status_update"
	EventTypeProgress       = "task_progress"
	EventTypeArtifactUpdate = "task_artifact_update"
	EventTypeError          = "task_error"
)

// Event is one item in a task's streaming event sequence. The sequence
// is finite: it ends with a StatusUpdateEvent carrying Final=true or an
// unrecoverable ErrorEvent.
type Event interface {
	EventType() string
}

// StatusUpdateEvent reports a task state transition.
type StatusUpdateEvent struct {
	TaskID    string    `json:"task_id"`
	Previous  State     `json:"previous"`
	State     State     `json:"state"`
	Final     bool      `json:"final"`
	Timestamp time.Time `json:"timestamp"`
}

func (StatusUpdateEvent) EventType() string { return EventTypeStatusUpdate }

// ProgressEvent reports fractional progress while a task is working.
type ProgressEvent struct {
	TaskID    string    `json:"task_id"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (ProgressEvent) EventType() string { return EventTypeProgress }

// ArtifactUpdateEvent carries an artifact produced mid-task.
type ArtifactUpdateEvent struct {
	TaskID   string   `json:"task_id"`
	Artifact Artifact `json:"artifact"`
}

func (ArtifactUpdateEvent) EventType() string { return EventTypeArtifactUpdate }

// ErrorEvent reports a failure during streaming execution. A
// non-recoverable error terminates the stream.
type ErrorEvent struct {
	TaskID      string `json:"task_id"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

func (ErrorEvent) EventType() string { return EventTypeError }

// IsFinalEvent reports whether the event terminates its stream.
func IsFinalEvent(ev Event) bool {
	switch e := ev.(type) {
	case StatusUpdateEvent:
		return e.Final
	case *StatusUpdateEvent:
		return e.Final
	case ErrorEvent:
		return !e.Recoverable
	case *ErrorEvent:
		return !e.Recoverable
	}
	return false
}

// NewStatusUpdateEvent builds a status event for the given transition.
func NewStatusUpdateEvent(taskID string, previous, state State, final bool) StatusUpdateEvent {
	return StatusUpdateEvent{
		TaskID:    taskID,
		Previous:  previous,
		State:     state,
		Final:     final,
		Timestamp: time.Now().UTC(),
	}
}

// NewProgressEvent builds a progress event.
func NewProgressEvent(taskID string, percent float64, message string) ProgressEvent {
	return ProgressEvent{
		TaskID:    taskID,
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// UnmarshalEvent decodes an event payload tagged with the given
// discriminator back into its concrete type.
func UnmarshalEvent(eventType string, data []byte) (Event, error) {
	switch eventType {
	case EventTypeStatusUpdate:
		var ev StatusUpdateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventTypeProgress:
		var ev ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventTypeArtifactUpdate:
		var ev ArtifactUpdateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventTypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
