package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/protolink/pkg/a2a"
	"github.com/kadirpekel/protolink/pkg/auth"
	"github.com/kadirpekel/protolink/pkg/httpclient"
)

// TokenProvider supplies the outbound bearer token for authenticated
// calls.
type TokenProvider func(ctx context.Context) (string, error)

// HTTPTransport is the network-backed request/response transport. It
// serializes tasks to JSON, POSTs them to {endpoint}/tasks/, and
// retries transient failures with capped exponential backoff. When
// configured with a listen address it also serves the inbound side of
// the same wire shape, including SSE streaming.
type HTTPTransport struct {
	addr   string
	card   *a2a.AgentCard
	gate   *auth.Gate
	logger *slog.Logger

	client    *httpclient.Client
	sseClient *http.Client
	token     TokenProvider

	mu            sync.RWMutex
	handler       TaskHandler
	streamHandler StreamHandler
	server        *http.Server
	boundAddr     string
	running       bool
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithListenAddress enables the server side on the given address.
func WithListenAddress(addr string) HTTPOption {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithAgentCard sets the card served at /.well-known/agent.json.
func WithAgentCard(card *a2a.AgentCard) HTTPOption {
	return func(t *HTTPTransport) {
		t.card = card
	}
}

// WithGate installs the auth gate on the inbound path.
func WithGate(gate *auth.Gate) HTTPOption {
	return func(t *HTTPTransport) {
		t.gate = gate
	}
}

// WithRetry configures the outbound retry policy: total attempts and
// the base backoff delay (doubled per attempt, capped at maxDelay).
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = httpclient.New(
			httpclient.WithMaxAttempts(attempts),
			httpclient.WithBaseDelay(baseDelay),
			httpclient.WithMaxDelay(maxDelay),
		)
	}
}

// WithHTTPClient replaces the outbound retrying client.
func WithHTTPClient(client *httpclient.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithTokenProvider supplies bearer tokens for outbound calls.
func WithTokenProvider(provider TokenProvider) HTTPOption {
	return func(t *HTTPTransport) {
		t.token = provider
	}
}

// WithStaticToken uses a fixed bearer token for outbound calls.
func WithStaticToken(token string) HTTPOption {
	return func(t *HTTPTransport) {
		t.token = func(context.Context) (string, error) { return token, nil }
	}
}

// WithTransportLogger sets the logger used by the server middlewares.
func WithTransportLogger(logger *slog.Logger) HTTPOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates an HTTP transport. Without WithListenAddress
// it is client-only and Start is a no-op.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		client:    httpclient.New(),
		sseClient: &http.Client{},
		logger:    slog.Default(),
		gate:      auth.NewGate(nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) setAuthHeaders(ctx context.Context, req *http.Request, skill string) error {
	if t.token != nil {
		token, err := t.token(ctx)
		if err != nil {
			return fmt.Errorf("token provider: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if skill != "" && skill != auth.DefaultSkill {
		req.Header.Set(auth.SkillHeader, skill)
	}
	return nil
}

// mapClientError converts low-level HTTP failures into the shared
// transport error taxonomy.
func mapClientError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	}
	if status := httpclient.StatusOf(err); status == http.StatusNotFound || status == http.StatusGone {
		return fmt.Errorf("%w: %v", ErrEndpointNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
}

func taskURL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + "/tasks/"
}

// SendTask POSTs the task to the endpoint and decodes the mutated task
// from the response.
func (t *HTTPTransport) SendTask(ctx context.Context, endpoint string, task *a2a.Task, skill string) (*a2a.Task, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, taskURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := t.setAuthHeaders(ctx, req, skill); err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, mapClientError(err)
	}
	defer resp.Body.Close()

	var result a2a.Task
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode task response: %w", err)
	}
	return &result, nil
}

// SendMessage wraps the message in a fresh task and returns the last
// result message.
func (t *HTTPTransport) SendMessage(ctx context.Context, endpoint string, msg a2a.Message) (a2a.Message, error) {
	return sendMessage(ctx, t, endpoint, msg)
}

// SubscribeTask POSTs the task to the subscribe route and decodes the
// SSE stream into protocol events.
func (t *HTTPTransport) SubscribeTask(ctx context.Context, endpoint string, task *a2a.Task) (<-chan a2a.Event, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, taskURL(endpoint)+"subscribe", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if err := t.setAuthHeaders(ctx, req, ""); err != nil {
		return nil, err
	}

	resp, err := t.sseClient.Do(req)
	if err != nil {
		return nil, mapClientError(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, mapClientError(&httpclient.StatusError{StatusCode: resp.StatusCode})
	}

	events := make(chan a2a.Event)
	go readSSE(ctx, resp.Body, events)
	return events, nil
}

// GetAgentCard fetches the endpoint's card from the well-known path.
func (t *HTTPTransport) GetAgentCard(ctx context.Context, endpoint string) (*a2a.AgentCard, error) {
	url := strings.TrimRight(endpoint, "/") + "/.well-known/agent.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, mapClientError(err)
	}
	defer resp.Body.Close()

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}

// OnTaskReceived binds the inbound handler. Last write wins.
func (t *HTTPTransport) OnTaskReceived(handler TaskHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// OnTaskStreamReceived binds a dedicated streaming handler used by the
// subscribe route.
func (t *HTTPTransport) OnTaskStreamReceived(handler StreamHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamHandler = handler
}

func (t *HTTPTransport) currentHandlers() (TaskHandler, StreamHandler) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handler, t.streamHandler
}

// Start begins serving when a listen address is configured. Idempotent.
func (t *HTTPTransport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}
	if t.addr == "" {
		t.running = true
		return nil
	}
	if t.handler == nil && t.streamHandler == nil {
		return ErrHandlerNotRegistered
	}

	router := chi.NewRouter()
	router.Use(RequestLogger(t.logger))
	router.Use(MetricsMiddleware)

	router.Get("/.well-known/agent.json", t.handleAgentCard)
	router.Group(func(r chi.Router) {
		r.Use(t.gate.Middleware)
		r.Post("/tasks/", t.handleTask)
		r.Post("/tasks/subscribe", t.handleSubscribe)
	})

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	server := &http.Server{Handler: router}
	t.server = server
	t.boundAddr = listener.Addr().String()
	t.running = true

	// The goroutine must not touch t.server: Stop nils the field.
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("http server stopped", "error", err)
		}
	}()

	t.logger.Info("http transport listening", "addr", listener.Addr().String())
	return nil
}

// Stop shuts the server down. Safe to call repeatedly or before Start.
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	if t.server == nil {
		return nil
	}

	err := t.server.Shutdown(ctx)
	t.server = nil
	return err
}

// Addr returns the bound listen address once Start has run, otherwise
// the configured one.
func (t *HTTPTransport) Addr() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.boundAddr != "" {
		return t.boundAddr
	}
	return t.addr
}

func (t *HTTPTransport) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	if t.card == nil {
		respondError(w, http.StatusNotFound, "agent_card_unavailable", "no agent card configured")
		return
	}
	respondJSON(w, http.StatusOK, t.card)
}

func (t *HTTPTransport) handleTask(w http.ResponseWriter, r *http.Request) {
	handler, _ := t.currentHandlers()
	if handler == nil {
		respondError(w, http.StatusServiceUnavailable, "handler_not_registered", ErrHandlerNotRegistered.Error())
		return
	}

	var task a2a.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_task", "invalid task body")
		return
	}

	result, err := handler(r.Context(), &task)
	if err != nil {
		var protoErr *a2a.ProtocolError
		if errors.As(err, &protoErr) {
			respondError(w, http.StatusConflict, protoErr.Code, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "task_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (t *HTTPTransport) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	handler, streamHandler := t.currentHandlers()
	if handler == nil && streamHandler == nil {
		respondError(w, http.StatusServiceUnavailable, "handler_not_registered", ErrHandlerNotRegistered.Error())
		return
	}

	var task a2a.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_task", "invalid task body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev a2a.Event) error {
		if err := r.Context().Err(); err != nil {
			return err
		}
		return sendSSEEvent(w, flusher, ev.EventType(), ev)
	}
	runStream(r.Context(), &task, handler, streamHandler, NewStream(r.Context(), emit))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"code": code, "error": message})
}
