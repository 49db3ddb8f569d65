// Package agent is the runtime that ties the protocol together: it binds
// a task handler to a transport's inbound hook, advertises the agent's
// card, keeps the agent registered and heartbeating against a discovery
// directory, and exposes client calls to other agents.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/protolink/pkg/a2a"
	"github.com/kadirpekel/protolink/pkg/auth"
	"github.com/kadirpekel/protolink/pkg/registry"
	"github.com/kadirpekel/protolink/pkg/session"
	"github.com/kadirpekel/protolink/pkg/transport"
)

// MetadataContextKey is the task metadata key carrying a session context
// id. When present on an inbound task, the conversation is recorded in the
// agent's session manager under that id.
const MetadataContextKey = "context_id"

// DefaultHeartbeatInterval is used when a directory is configured without
// an explicit heartbeat cadence.
const DefaultHeartbeatInterval = 20 * time.Second

var (
	// ErrNoHandler is returned by Run when no task handler has been bound.
	ErrNoHandler = errors.New("agent has no task handler")

	// ErrNoDirectory is returned by Discover when the agent was built
	// without a directory.
	ErrNoDirectory = errors.New("agent has no discovery directory")
)

// Skill is one advertised capability of an agent.
type Skill struct {
	Name        string
	Description string
}

// selfAttacher is implemented by transports that bind the agent's own
// card in addition to the inbound handler (the in-process hub does).
type selfAttacher interface {
	Attach(card *a2a.AgentCard) error
}

// Agent composes a card, a transport, and optionally a discovery
// directory into a runnable protocol participant.
type Agent struct {
	card      *a2a.AgentCard
	transport transport.Transport
	directory registry.Directory
	sessions  *session.Manager
	logger    *slog.Logger

	heartbeatInterval time.Duration

	mu            sync.RWMutex
	skills        map[string]Skill
	handler       transport.TaskHandler
	streamHandler transport.StreamHandler
	cancel        context.CancelFunc
	group         *errgroup.Group
}

// Option configures an Agent.
type Option func(*Agent)

// WithDirectory attaches a discovery directory. The agent registers
// itself on Run and heartbeats until shutdown.
func WithDirectory(directory registry.Directory) Option {
	return func(a *Agent) {
		a.directory = directory
	}
}

// WithHeartbeatInterval sets the directory heartbeat cadence.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.heartbeatInterval = interval
		}
	}
}

// WithSessionManager overrides the agent's session manager.
func WithSessionManager(sessions *session.Manager) Option {
	return func(a *Agent) {
		if sessions != nil {
			a.sessions = sessions
		}
	}
}

// WithAgentLogger sets the agent logger.
func WithAgentLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent for the given card and transport.
func New(card *a2a.AgentCard, tr transport.Transport, opts ...Option) *Agent {
	a := &Agent{
		card:              card,
		transport:         tr,
		sessions:          session.NewManager(),
		logger:            slog.Default(),
		heartbeatInterval: DefaultHeartbeatInterval,
		skills:            make(map[string]Skill),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Card returns the agent's card.
func (a *Agent) Card() *a2a.AgentCard {
	return a.card
}

// Sessions returns the agent's session manager.
func (a *Agent) Sessions() *session.Manager {
	return a.sessions
}

// AddSkill advertises a named skill on the agent's card: the capability
// flag is set and the matching authorization scope is added to the card's
// required scopes, kept in sorted order so the card is deterministic.
func (a *Agent) AddSkill(name, description string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.skills[name] = Skill{Name: name, Description: description}
	a.card.Capabilities[name] = true

	names := make([]string, 0, len(a.skills))
	for skill := range a.skills {
		names = append(names, skill)
	}
	sort.Strings(names)

	scopes := make([]string, 0, len(names))
	for _, skill := range names {
		scopes = append(scopes, auth.ScopeForSkill(skill))
	}
	a.card.RequiredScopes = scopes
}

// Skills returns the advertised skills in sorted order.
func (a *Agent) Skills() []Skill {
	a.mu.RLock()
	defer a.mu.RUnlock()

	skills := make([]Skill, 0, len(a.skills))
	for _, s := range a.skills {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// OnTask binds the inbound task handler. At most one handler is bound at
// a time; the last write wins.
func (a *Agent) OnTask(handler transport.TaskHandler) {
	a.mu.Lock()
	a.handler = handler
	a.mu.Unlock()

	a.transport.OnTaskReceived(a.dispatch)
}

// OnTaskStream binds a streaming handler and flips the card's streaming
// capability on. Transports without streaming support ignore it.
func (a *Agent) OnTaskStream(handler transport.StreamHandler) {
	a.mu.Lock()
	a.streamHandler = handler
	a.card.Capabilities["streaming"] = true
	a.mu.Unlock()

	if sr, ok := a.transport.(transport.StreamReceiver); ok {
		sr.OnTaskStreamReceived(handler)
	}
}

// dispatch wraps the bound handler with session bookkeeping: when the
// task carries a context id, the inbound message and the handler's reply
// are appended to that session.
func (a *Agent) dispatch(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	a.mu.RLock()
	handler := a.handler
	a.mu.RUnlock()

	if handler == nil {
		return nil, transport.ErrHandlerNotRegistered
	}

	contextID, hasContext := task.Metadata[MetadataContextKey].(string)
	if hasContext {
		if _, ok := a.sessions.Get(contextID); !ok {
			a.sessions.Create(contextID)
		}
		if inbound, ok := task.LastMessage(); ok {
			a.sessions.AddMessage(contextID, inbound)
		}
	}

	result, err := handler(ctx, task)
	if err != nil {
		return nil, err
	}

	if hasContext && result != nil {
		if reply, ok := result.LastMessage(); ok && reply.Role == a2a.MessageRoleAgent {
			a.sessions.AddMessage(contextID, reply)
		}
	}
	return result, nil
}

// Run starts the transport, registers with the directory when one is
// configured, and keeps heartbeating until ctx is cancelled or Shutdown
// is called. Run does not block; use Wait to join.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.handler == nil && a.streamHandler == nil {
		return ErrNoHandler
	}

	if at, ok := a.transport.(selfAttacher); ok {
		if err := at.Attach(a.card); err != nil {
			return fmt.Errorf("attach agent card: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	a.cancel = cancel
	a.group = group

	if err := a.transport.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start transport: %w", err)
	}

	if a.directory != nil {
		if err := a.directory.Register(runCtx, a.card); err != nil {
			cancel()
			_ = a.transport.Stop(context.Background())
			return fmt.Errorf("register agent: %w", err)
		}
		group.Go(func() error {
			return a.heartbeatLoop(groupCtx)
		})
	}

	a.logger.Info("agent running", "name", a.card.Name, "url", a.card.URL)
	return nil
}

// Wait blocks until the agent's background work finishes.
func (a *Agent) Wait() error {
	a.mu.RLock()
	group := a.group
	a.mu.RUnlock()

	if group == nil {
		return nil
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown stops heartbeating, unregisters from the directory, and stops
// the transport. Safe to call multiple times.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	var errs []error
	if a.directory != nil {
		if err := a.directory.Unregister(ctx, a.card.URL); err != nil {
			errs = append(errs, fmt.Errorf("unregister: %w", err))
		}
	}
	if err := a.transport.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop transport: %w", err))
	}
	if err := a.Wait(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("agent stopped", "name", a.card.Name)
	return errors.Join(errs...)
}

func (a *Agent) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.directory.Heartbeat(ctx, a.card.URL); err != nil {
				if errors.Is(err, registry.ErrNotRegistered) {
					// Evicted; re-register instead of giving up.
					if rerr := a.directory.Register(ctx, a.card); rerr != nil {
						a.logger.Warn("re-registration failed", "error", rerr)
					}
					continue
				}
				a.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}
