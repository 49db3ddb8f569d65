// Package auth provides authentication and authorization for inbound
// task delivery. The Gate verifies bearer credentials against a
// pluggable Provider before any task handler runs.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultSkill is the skill name that requires no authorization step
// beyond authentication.
const DefaultSkill = "default"

// ScopePrefix prefixes skill names in scope strings.
const ScopePrefix = "skill:"

// ScopeForSkill returns the scope string guarding the named skill.
func ScopeForSkill(skill string) string {
	return ScopePrefix + skill
}

// AuthContext is the result of successful credential verification.
type AuthContext struct {
	PrincipalID string     `json:"principal_id"`
	Scopes      []string   `json:"scopes"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// IsExpired reports whether the context's expiry is in the past. A nil
// expiry never expires.
func (c *AuthContext) IsExpired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now())
}

// HasScope reports whether the context carries the given scope.
func (c *AuthContext) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Provider authenticates tokens and authorizes skills. Implementations
// are external collaborators (JWT validation, API key lookup, ...).
type Provider interface {
	// Authenticate validates the raw token and produces an AuthContext.
	Authenticate(ctx context.Context, token string) (*AuthContext, error)

	// Authorize reports whether the authenticated principal may invoke
	// the named skill.
	Authorize(ctx context.Context, authCtx *AuthContext, skill string) (bool, error)
}

// Gate runs the verification pipeline in front of task handlers. A Gate
// with no provider admits everything (auth is opt-in per agent).
type Gate struct {
	provider Provider

	mu      sync.RWMutex
	current *AuthContext
}

// NewGate creates a gate backed by the given provider. A nil provider
// disables verification.
func NewGate(provider Provider) *Gate {
	return &Gate{provider: provider}
}

// Enabled reports whether a provider is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.provider != nil
}

// Verify checks the Authorization header value against the provider for
// the given skill. With no provider it returns (nil, nil). On success
// the context is cached as current and returned.
func (g *Gate) Verify(ctx context.Context, credentialHeader, skill string) (*AuthContext, error) {
	if !g.Enabled() {
		return nil, nil
	}

	if credentialHeader == "" {
		return nil, ErrMissingCredentials
	}

	token := strings.TrimPrefix(credentialHeader, "Bearer ")
	if token == credentialHeader || token == "" {
		return nil, ErrMalformedCredentials
	}

	authCtx, err := g.provider.Authenticate(ctx, token)
	if err != nil {
		if isExpiryError(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	if authCtx.IsExpired() {
		return nil, ErrTokenExpired
	}

	if skill != DefaultSkill {
		allowed, err := g.provider.Authorize(ctx, authCtx, skill)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: skill %q", ErrAuthorizationFailed, skill)
		}
	}

	g.mu.Lock()
	g.current = authCtx
	g.mu.Unlock()

	return authCtx, nil
}

// Current returns the context of the most recent successful Verify.
func (g *Gate) Current() *AuthContext {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}
