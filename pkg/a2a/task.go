package a2a

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MetadataErrorKey is the reserved metadata key under which Fail records
// its reason.
const MetadataErrorKey = "error"

// State represents the lifecycle state of a task.
type State string

const (
	// StateSubmitted means the task has been created but not started.
	StateSubmitted State = "submitted"

	// StateWorking means the task is being processed.
	StateWorking State = "working"

	// StateCompleted means the task finished successfully.
	StateCompleted State = "completed"

	// StateFailed means the task failed with an error.
	StateFailed State = "failed"

	// StateCancelled means the task was cancelled before finishing.
	StateCancelled State = "cancelled"
)

// IsTerminal returns whether this state admits no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// transitions holds the only legal state machine edges. Everything else
// is rejected with ErrInvalidTransition.
var transitions = map[State][]State{
	StateSubmitted: {StateWorking, StateCompleted, StateFailed, StateCancelled},
	StateWorking:   {StateCompleted, StateFailed, StateCancelled},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task is the unit of work exchanged between agents. Messages and
// artifacts preserve append order; a task is single-owner while one
// handler executes it, but the mutex keeps observers safe regardless.
type Task struct {
	ID        string         `json:"id"`
	State     State          `json:"state"`
	Messages  []Message      `json:"messages"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	mu sync.RWMutex
}

// NewTask creates a task in the submitted state seeded with the given
// initial message.
func NewTask(msg Message) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New().String(),
		State:     StateSubmitted,
		Messages:  []Message{msg},
		Artifacts: make([]Artifact, 0),
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// transition moves the task to the given state, enforcing the state
// machine. Callers must hold t.mu.
func (t *Task) transition(to State) error {
	if !canTransition(t.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, to)
	}
	t.State = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Start moves the task from submitted to working.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateSubmitted {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, StateWorking)
	}
	return t.transition(StateWorking)
}

// Complete finishes the task successfully, appending an agent message
// carrying the response text. Valid from submitted or working.
func (t *Task) Complete(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskClosed, t.ID, t.State)
	}
	if err := t.transition(StateCompleted); err != nil {
		return err
	}
	t.Messages = append(t.Messages, NewAgentMessage(text))
	return nil
}

// Fail marks the task failed, recording the reason under the reserved
// metadata key.
func (t *Task) Fail(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transition(StateFailed); err != nil {
		return err
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[MetadataErrorKey] = reason
	return nil
}

// Cancel marks the task cancelled. Valid from submitted or working.
func (t *Task) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.transition(StateCancelled)
}

// AddMessage appends a message. Rejected with ErrTaskClosed once the
// task reached a terminal state.
func (t *Task) AddMessage(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskClosed, t.ID, t.State)
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// AddArtifact appends an artifact. Rejected with ErrTaskClosed once the
// task reached a terminal state.
func (t *Task) AddArtifact(artifact Artifact) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskClosed, t.ID, t.State)
	}
	t.Artifacts = append(t.Artifacts, artifact)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the task reached a terminal state.
func (t *Task) IsTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State.IsTerminal()
}

// CurrentState returns the task state (thread-safe).
func (t *Task) CurrentState() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// LastMessage returns the most recently appended message.
func (t *Task) LastMessage() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// SetMetadata sets a metadata value.
func (t *Task) SetMetadata(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[key] = value
	t.UpdatedAt = time.Now().UTC()
}
