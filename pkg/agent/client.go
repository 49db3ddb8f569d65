package agent

import (
	"context"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

// SendTaskTo delivers a task to another agent, blocking until the remote
// handler returns. The skill hint is passed to the remote auth gate.
func (a *Agent) SendTaskTo(ctx context.Context, agentURL string, task *a2a.Task, skill string) (*a2a.Task, error) {
	return a.transport.SendTask(ctx, agentURL, task, skill)
}

// SendMessageTo wraps the message in a fresh task, delivers it, and
// returns the last message of the result.
func (a *Agent) SendMessageTo(ctx context.Context, agentURL string, message a2a.Message) (a2a.Message, error) {
	return a.transport.SendMessage(ctx, agentURL, message)
}

// SubscribeTaskAt delivers a task and returns the remote agent's event
// stream.
func (a *Agent) SubscribeTaskAt(ctx context.Context, agentURL string, task *a2a.Task) (<-chan a2a.Event, error) {
	return a.transport.SubscribeTask(ctx, agentURL, task)
}

// FetchCard retrieves another agent's card.
func (a *Agent) FetchCard(ctx context.Context, agentURL string) (*a2a.AgentCard, error) {
	return a.transport.GetAgentCard(ctx, agentURL)
}

// Discover queries the configured directory for live agents matching
// the filter.
func (a *Agent) Discover(ctx context.Context, filter map[string]string) ([]*a2a.AgentCard, error) {
	if a.directory == nil {
		return nil, ErrNoDirectory
	}
	return a.directory.Discover(ctx, filter)
}

// Process runs a piece of text through the agent's own handler without
// touching a transport. Convenience for local testing.
func (a *Agent) Process(ctx context.Context, text string) (string, error) {
	task := a2a.NewTask(a2a.NewUserMessage(text))
	result, err := a.dispatch(ctx, task)
	if err != nil {
		return "", err
	}
	if last, ok := result.LastMessage(); ok && last.Role == a2a.MessageRoleAgent {
		return a2a.ExtractText(last), nil
	}
	return "", nil
}
