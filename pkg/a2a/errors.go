package a2a

// ProtocolError is a typed protocol-level error with a machine-readable
// code. Codes also appear in HTTP error bodies and task_error events.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// State errors. Always fatal to the single call, never retried.
var (
	ErrInvalidTransition = &ProtocolError{Code: "invalid_state_transition", Message: "invalid task state transition"}
	ErrTaskClosed        = &ProtocolError{Code: "task_closed", Message: "task is in a terminal state"}
)
