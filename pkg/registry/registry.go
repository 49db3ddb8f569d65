// Package registry implements agent discovery: an in-memory catalog of
// agent cards keyed by endpoint URL, with heartbeat-based liveness, TTL
// eviction, and an HTTP server/client pair speaking the same Directory
// interface.
package registry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

const (
	// DefaultTTL is how long an agent stays discoverable after its last
	// heartbeat.
	DefaultTTL = 60 * time.Second

	// DefaultSweepInterval is how often stale entries are evicted. Staleness
	// is also enforced at read time by Discover, so sweeping is memory
	// reclamation, not a correctness requirement.
	DefaultSweepInterval = 30 * time.Second
)

var (
	registeredAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "protolink_registry_agents",
		Help: "Number of agents currently registered.",
	})
	evictedAgents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "protolink_registry_evictions_total",
		Help: "Total number of agents evicted for missed heartbeats.",
	})
)

// Directory is the discovery surface. The in-memory Registry and the HTTP
// Client both implement it, so agents can talk to a local or remote
// registry through the same calls.
type Directory interface {
	Register(ctx context.Context, card *a2a.AgentCard) error
	Unregister(ctx context.Context, agentURL string) error
	Heartbeat(ctx context.Context, agentURL string) error
	Discover(ctx context.Context, filter map[string]string) ([]*a2a.AgentCard, error)
}

var _ Directory = (*Registry)(nil)

type entry struct {
	card          *a2a.AgentCard
	lastHeartbeat time.Time
}

// Registry is the in-memory agent catalog. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // insertion order, kept for deterministic discovery

	ttl           time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the heartbeat TTL window.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the eviction sweep runs.
func WithSweepInterval(interval time.Duration) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.sweepInterval = interval
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a registry. Call Start to run the eviction sweep.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:       make(map[string]*entry),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the configured heartbeat TTL.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Register upserts the card keyed by its URL. Re-registration replaces the
// prior card wholesale and resets the heartbeat.
func (r *Registry) Register(_ context.Context, card *a2a.AgentCard) error {
	if card == nil || card.URL == "" {
		return ErrInvalidCard
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[card.URL]; !exists {
		r.order = append(r.order, card.URL)
	}
	r.entries[card.URL] = &entry{card: card, lastHeartbeat: time.Now()}
	registeredAgents.Set(float64(len(r.entries)))

	r.logger.Debug("agent registered", "url", card.URL, "name", card.Name)
	return nil
}

// Unregister removes the entry for agentURL. Removing an absent entry is
// not an error.
func (r *Registry) Unregister(_ context.Context, agentURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[agentURL]; !exists {
		return nil
	}
	r.remove(agentURL)
	r.logger.Debug("agent unregistered", "url", agentURL)
	return nil
}

// Heartbeat refreshes the liveness timestamp for agentURL.
func (r *Registry) Heartbeat(_ context.Context, agentURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[agentURL]
	if !exists {
		return ErrNotRegistered
	}
	e.lastHeartbeat = time.Now()
	return nil
}

// Discover returns all live entries matching every key/value in filter,
// in registration order. Entries whose last heartbeat is older than the
// TTL are excluded regardless of sweep cadence.
func (r *Registry) Discover(_ context.Context, filter map[string]string) ([]*a2a.AgentCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-r.ttl)
	cards := make([]*a2a.AgentCard, 0, len(r.entries))
	for _, url := range r.order {
		e, exists := r.entries[url]
		if !exists || e.lastHeartbeat.Before(cutoff) {
			continue
		}
		if matchesFilter(e.card, filter) {
			cards = append(cards, e.card)
		}
	}
	return cards, nil
}

// Get returns the card registered under agentURL, live or not.
func (r *Registry) Get(agentURL string) (*a2a.AgentCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[agentURL]
	if !exists {
		return nil, false
	}
	return e.card, true
}

// Count returns the number of registered entries, including stale ones
// not yet swept.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Start launches the periodic eviction sweep. Idempotent.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopSweep != nil {
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	r.stopSweep = cancel
	r.sweepDone = make(chan struct{})
	go r.sweepLoop(sweepCtx, r.sweepDone)
}

// Stop halts the eviction sweep. Safe to call multiple times or before
// Start.
func (r *Registry) Stop() {
	r.mu.Lock()
	cancel := r.stopSweep
	done := r.sweepDone
	r.stopSweep = nil
	r.sweepDone = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Registry) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictStale()
		}
	}
}

func (r *Registry) evictStale() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.ttl)
	for url, e := range r.entries {
		if e.lastHeartbeat.Before(cutoff) {
			r.remove(url)
			evictedAgents.Inc()
			r.logger.Info("agent evicted", "url", url, "last_heartbeat", e.lastHeartbeat)
		}
	}
}

// remove deletes url from both the map and the order slice. Caller holds
// the write lock.
func (r *Registry) remove(url string) {
	delete(r.entries, url)
	for i, u := range r.order {
		if u == url {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	registeredAgents.Set(float64(len(r.entries)))
}

// matchesFilter checks every filter key against the card. Plain keys match
// card fields (name, url, version, description); "capabilities.<flag>"
// keys match capability flags against "true"/"false".
func matchesFilter(card *a2a.AgentCard, filter map[string]string) bool {
	for key, want := range filter {
		var got string
		switch key {
		case "name":
			got = card.Name
		case "url":
			got = card.URL
		case "version":
			got = card.Version
		case "description":
			got = card.Description
		default:
			const capPrefix = "capabilities."
			if len(key) > len(capPrefix) && key[:len(capPrefix)] == capPrefix {
				got = strconv.FormatBool(card.Capability(key[len(capPrefix):]))
			} else {
				return false
			}
		}
		if got != want {
			return false
		}
	}
	return true
}
