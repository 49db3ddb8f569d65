package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

// inprocEndpoint is one agent reachable through the in-process map.
type inprocEndpoint struct {
	card          *a2a.AgentCard
	handler       TaskHandler
	streamHandler StreamHandler
}

// InProcessTransport routes tasks between co-located agents through a
// shared name/url map, with no network and no serialization. Handlers
// run synchronously in the caller's control flow. Used for same-process
// multi-agent composition and testing.
type InProcessTransport struct {
	mu        sync.RWMutex
	endpoints map[string]*inprocEndpoint

	// self is the endpoint bound through OnTaskReceived; its card is
	// attached via RegisterEndpoint or Attach.
	self inprocEndpoint

	running bool
}

// NewInProcessTransport creates an empty in-process transport.
func NewInProcessTransport() *InProcessTransport {
	return &InProcessTransport{
		endpoints: make(map[string]*inprocEndpoint),
	}
}

// RegisterEndpoint maps the card's url and name to the given handler.
func (t *InProcessTransport) RegisterEndpoint(card *a2a.AgentCard, handler TaskHandler) error {
	return t.register(card, handler, nil)
}

// RegisterStreamEndpoint maps the card's url and name to a dedicated
// streaming handler alongside the task handler.
func (t *InProcessTransport) RegisterStreamEndpoint(card *a2a.AgentCard, handler TaskHandler, streamHandler StreamHandler) error {
	return t.register(card, handler, streamHandler)
}

func (t *InProcessTransport) register(card *a2a.AgentCard, handler TaskHandler, streamHandler StreamHandler) error {
	if card == nil || card.URL == "" {
		return fmt.Errorf("card with a url is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ep := &inprocEndpoint{card: card, handler: handler, streamHandler: streamHandler}
	t.endpoints[card.URL] = ep
	if card.Name != "" {
		t.endpoints[card.Name] = ep
	}
	return nil
}

// Attach binds the card to the handlers registered via OnTaskReceived
// and OnTaskStreamReceived, keeping them in sync on later rebinds.
func (t *InProcessTransport) Attach(card *a2a.AgentCard) error {
	if card == nil || card.URL == "" {
		return fmt.Errorf("card with a url is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.self.card = card
	ep := &inprocEndpoint{card: card, handler: t.self.handler, streamHandler: t.self.streamHandler}
	t.endpoints[card.URL] = ep
	if card.Name != "" {
		t.endpoints[card.Name] = ep
	}
	return nil
}

func (t *InProcessTransport) lookup(endpoint string) (*inprocEndpoint, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ep, ok := t.endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, endpoint)
	}
	return ep, nil
}

// SendTask resolves the endpoint and invokes its handler synchronously.
func (t *InProcessTransport) SendTask(ctx context.Context, endpoint string, task *a2a.Task, _ string) (*a2a.Task, error) {
	ep, err := t.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	if ep.handler == nil {
		return nil, ErrHandlerNotRegistered
	}

	result, err := ep.handler(ctx, task)
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctxErr)
	}
	return result, nil
}

// SendMessage wraps the message in a fresh task and returns the last
// result message.
func (t *InProcessTransport) SendMessage(ctx context.Context, endpoint string, msg a2a.Message) (a2a.Message, error) {
	return sendMessage(ctx, t, endpoint, msg)
}

// SubscribeTask runs the endpoint's streaming execution in a goroutine,
// delivering events through a pull-based channel. The producer stops at
// its next send once ctx is cancelled.
func (t *InProcessTransport) SubscribeTask(ctx context.Context, endpoint string, task *a2a.Task) (<-chan a2a.Event, error) {
	ep, err := t.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	if ep.handler == nil && ep.streamHandler == nil {
		return nil, ErrHandlerNotRegistered
	}

	// Unbuffered: backpressure comes from the consumer pulling events,
	// with at most one send pending at a time.
	events := make(chan a2a.Event)
	emit := func(ev a2a.Event) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(events)
		runStream(ctx, task, ep.handler, ep.streamHandler, NewStream(ctx, emit))
	}()

	return events, nil
}

// GetAgentCard returns the registered card for the endpoint.
func (t *InProcessTransport) GetAgentCard(_ context.Context, endpoint string) (*a2a.AgentCard, error) {
	ep, err := t.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	return ep.card, nil
}

// OnTaskReceived binds this transport's own handler. Last write wins.
func (t *InProcessTransport) OnTaskReceived(handler TaskHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.self.handler = handler
	if t.self.card != nil {
		if ep, ok := t.endpoints[t.self.card.URL]; ok {
			ep.handler = handler
		}
	}
}

// OnTaskStreamReceived binds this transport's own streaming handler.
func (t *InProcessTransport) OnTaskStreamReceived(handler StreamHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.self.streamHandler = handler
	if t.self.card != nil {
		if ep, ok := t.endpoints[t.self.card.URL]; ok {
			ep.streamHandler = handler
		}
	}
}

// Start marks the transport running. Idempotent; there is nothing to
// listen on.
func (t *InProcessTransport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	return nil
}

// Stop marks the transport stopped. Safe before Start and repeatedly.
func (t *InProcessTransport) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	return nil
}
