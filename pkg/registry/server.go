package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/protolink/pkg/a2a"
	"github.com/kadirpekel/protolink/pkg/transport"
)

// Server exposes a Registry over HTTP:
//
//	POST   /agents/            register (body = agent card JSON)
//	DELETE /agents/?agent_url= unregister
//	PUT    /agents/heartbeat?agent_url=
//	GET    /agents/?<filters>  discover (JSON array of cards)
//	GET    /status             liveness and counts
//	GET    /metrics            Prometheus metrics
type Server struct {
	registry *Registry
	addr     string
	logger   *slog.Logger

	mu        sync.Mutex
	server    *http.Server
	boundAddr string
	startedAt time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer wraps a registry in an HTTP server listening on addr.
func NewServer(registry *Registry, addr string, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		addr:     addr,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening and launches the registry's eviction sweep.
// Idempotent.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("registry server listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()
	s.startedAt = time.Now()

	s.registry.Start(ctx)

	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = server
	// The goroutine must not touch s.server: Stop nils the field.
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("registry server failed", "error", err)
		}
	}()

	s.logger.Info("registry server listening", "addr", s.boundAddr, "ttl", s.registry.TTL())
	return nil
}

// Stop shuts down the server and the eviction sweep. Safe to call
// multiple times or before Start.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	s.registry.Stop()
	return server.Shutdown(ctx)
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundAddr != "" {
		return s.boundAddr
	}
	return s.addr
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(transport.RequestLogger(s.logger))
	r.Use(transport.MetricsMiddleware)

	r.Post("/agents/", s.handleRegister)
	r.Delete("/agents/", s.handleUnregister)
	r.Put("/agents/heartbeat", s.handleHeartbeat)
	r.Get("/agents/", s.handleDiscover)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var card a2a.AgentCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		respondError(w, http.StatusBadRequest, "invalid agent card")
		return
	}
	if err := s.registry.Register(r.Context(), &card); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	agentURL := r.URL.Query().Get("agent_url")
	if agentURL == "" {
		respondError(w, http.StatusBadRequest, "agent_url required")
		return
	}
	if err := s.registry.Unregister(r.Context(), agentURL); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unregistered"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	agentURL := r.URL.Query().Get("agent_url")
	if agentURL == "" {
		respondError(w, http.StatusBadRequest, "agent_url required")
		return
	}
	if err := s.registry.Heartbeat(r.Context(), agentURL); err != nil {
		if errors.Is(err, ErrNotRegistered) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	filter := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filter[key] = values[0]
		}
	}

	cards, err := s.registry.Discover(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"agents":         s.registry.Count(),
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
