// Package transport defines the transport abstraction for delivering
// tasks between agents, with in-process and HTTP backends. Every
// backend shares one contract: synchronous task delivery, message
// convenience wrappers, finite event streaming, card discovery, and an
// idempotent start/stop lifecycle.
package transport

import (
	"context"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

// TaskHandler processes one inbound task and returns the (possibly
// mutated) result task.
type TaskHandler func(ctx context.Context, task *a2a.Task) (*a2a.Task, error)

// StreamHandler processes one inbound task while emitting events on the
// stream. When it returns without having sent a final event, the
// transport appends the terminal status update itself.
type StreamHandler func(ctx context.Context, task *a2a.Task, stream *Stream) error

// Transport delivers tasks to remote (or co-located) agents.
type Transport interface {
	// SendTask delivers the task to the endpoint and blocks until the
	// remote handler returns a result or an error. skill is an optional
	// authorization scope hint for the remote side; empty means the
	// default skill.
	SendTask(ctx context.Context, endpoint string, task *a2a.Task, skill string) (*a2a.Task, error)

	// SendMessage wraps the message in a fresh task, sends it, and
	// returns the last message of the result. Fails with ErrNoResponse
	// if the result carries no messages.
	SendMessage(ctx context.Context, endpoint string, msg a2a.Message) (a2a.Message, error)

	// SubscribeTask delivers the task and returns a finite, ordered
	// event stream. The channel is closed after a final status update
	// or an unrecoverable error event, or when ctx is cancelled. A
	// stream is not restartable; resubscription requires a new call.
	SubscribeTask(ctx context.Context, endpoint string, task *a2a.Task) (<-chan a2a.Event, error)

	// GetAgentCard fetches the endpoint's agent card. No side effects.
	GetAgentCard(ctx context.Context, endpoint string) (*a2a.AgentCard, error)

	// OnTaskReceived binds the inbound handler. At most one handler is
	// bound at a time; the last write wins.
	OnTaskReceived(handler TaskHandler)

	// Start begins listening for inbound tasks. No-op for client-only
	// configurations. Idempotent.
	Start(ctx context.Context) error

	// Stop releases resources. Safe to call multiple times or before
	// Start.
	Stop(ctx context.Context) error
}

// StreamReceiver is implemented by transports that accept a dedicated
// streaming handler. Without one, streaming falls back to the default
// execution derived from the task handler.
type StreamReceiver interface {
	OnTaskStreamReceived(handler StreamHandler)
}

// EndpointRegistrar is implemented by transports that can host multiple
// endpoints in one process.
type EndpointRegistrar interface {
	RegisterEndpoint(card *a2a.AgentCard, handler TaskHandler) error
}

// Stream is the producer side of a task event stream. Sends observe
// cancellation and record finality so the producer can stop at its
// next yield point.
type Stream struct {
	ctx   context.Context
	emit  func(a2a.Event) error
	final bool
}

// NewStream wraps an emit function. emit must deliver one event to the
// consumer and block until it is accepted.
func NewStream(ctx context.Context, emit func(a2a.Event) error) *Stream {
	return &Stream{ctx: ctx, emit: emit}
}

// Send delivers one event to the consumer.
func (s *Stream) Send(ev a2a.Event) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := s.emit(ev); err != nil {
		return err
	}
	if a2a.IsFinalEvent(ev) {
		s.final = true
	}
	return nil
}

// Progress emits a task_progress event.
func (s *Stream) Progress(taskID string, percent float64, message string) error {
	return s.Send(a2a.NewProgressEvent(taskID, percent, message))
}

// Artifact emits a task_artifact_update event.
func (s *Stream) Artifact(taskID string, artifact a2a.Artifact) error {
	return s.Send(a2a.ArtifactUpdateEvent{TaskID: taskID, Artifact: artifact})
}

// Finished reports whether a final event has been sent.
func (s *Stream) Finished() bool {
	return s.final
}

// sendMessage implements the shared SendMessage semantics on top of a
// backend's SendTask.
func sendMessage(ctx context.Context, t Transport, endpoint string, msg a2a.Message) (a2a.Message, error) {
	task := a2a.NewTask(msg)
	result, err := t.SendTask(ctx, endpoint, task, "")
	if err != nil {
		return a2a.Message{}, err
	}
	if result == nil || len(result.Messages) == 0 {
		return a2a.Message{}, ErrNoResponse
	}
	return result.Messages[len(result.Messages)-1], nil
}

// runStream drives one streaming task execution: status update into
// working, then either the dedicated stream handler or the default
// execution over the task handler, then the terminal status update.
func runStream(ctx context.Context, task *a2a.Task, handler TaskHandler, streamHandler StreamHandler, stream *Stream) {
	previous := task.CurrentState()
	if err := task.Start(); err != nil {
		_ = stream.Send(a2a.ErrorEvent{
			TaskID:      task.ID,
			Code:        a2a.ErrInvalidTransition.Code,
			Message:     err.Error(),
			Recoverable: false,
		})
		return
	}

	if streamHandler != nil {
		// A dedicated stream handler owns the event sequence; only the
		// terminal status is appended when it did not produce one.
		if err := streamHandler(ctx, task, stream); err != nil {
			_ = stream.Send(a2a.ErrorEvent{
				TaskID:      task.ID,
				Code:        "task_failed",
				Message:     err.Error(),
				Recoverable: false,
			})
			_ = task.Fail(err.Error())
			return
		}
		if !stream.Finished() {
			_ = task.Complete("")
			_ = stream.Send(a2a.NewStatusUpdateEvent(task.ID, a2a.StateWorking, a2a.StateCompleted, true))
		}
		return
	}

	if handler == nil {
		_ = stream.Send(a2a.ErrorEvent{
			TaskID:      task.ID,
			Code:        "handler_not_registered",
			Message:     ErrHandlerNotRegistered.Error(),
			Recoverable: false,
		})
		return
	}

	// Default execution over the task handler: working status, the
	// result's artifacts, then the terminal status.
	if err := stream.Send(a2a.NewStatusUpdateEvent(task.ID, previous, a2a.StateWorking, false)); err != nil {
		return
	}

	result, err := handler(ctx, task)
	if err != nil {
		_ = stream.Send(a2a.ErrorEvent{
			TaskID:      task.ID,
			Code:        "task_failed",
			Message:     err.Error(),
			Recoverable: false,
		})
		_ = task.Fail(err.Error())
		return
	}
	if result == nil {
		result = task
	}
	for _, artifact := range result.Artifacts {
		if err := stream.Artifact(result.ID, artifact); err != nil {
			return
		}
	}
	if !result.IsTerminal() {
		_ = result.Complete("")
	}
	_ = stream.Send(a2a.NewStatusUpdateEvent(result.ID, a2a.StateWorking, result.CurrentState(), true))
}
