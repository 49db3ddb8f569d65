package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider is a scriptable Provider for gate pipeline tests.
type fakeProvider struct {
	authCtx      *AuthContext
	authErr      error
	authorizeOK  bool
	authorizeErr error

	authorizedSkill string
}

func (p *fakeProvider) Authenticate(_ context.Context, token string) (*AuthContext, error) {
	if p.authErr != nil {
		return nil, p.authErr
	}
	return p.authCtx, nil
}

func (p *fakeProvider) Authorize(_ context.Context, _ *AuthContext, skill string) (bool, error) {
	p.authorizedSkill = skill
	return p.authorizeOK, p.authorizeErr
}

func validContext() *AuthContext {
	exp := time.Now().Add(time.Hour)
	return &AuthContext{
		PrincipalID: "user-1",
		Scopes:      []string{"skill:analyze"},
		ExpiresAt:   &exp,
	}
}

func TestGate_NoProvider(t *testing.T) {
	gate := NewGate(nil)

	authCtx, err := gate.Verify(context.Background(), "", "analyze")
	if err != nil {
		t.Fatalf("Verify() with no provider error = %v", err)
	}
	if authCtx != nil {
		t.Errorf("Verify() with no provider = %v, want nil", authCtx)
	}
}

func TestGate_Verify(t *testing.T) {
	expired := time.Now().Add(-time.Hour)

	tests := []struct {
		name     string
		provider *fakeProvider
		header   string
		skill    string
		wantErr  error
	}{
		{
			name:     "missing credentials",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: true},
			header:   "",
			skill:    DefaultSkill,
			wantErr:  ErrMissingCredentials,
		},
		{
			name:     "malformed credentials",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: true},
			header:   "Basic dXNlcjpwYXNz",
			skill:    DefaultSkill,
			wantErr:  ErrMalformedCredentials,
		},
		{
			name:     "empty bearer token",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: true},
			header:   "Bearer ",
			skill:    DefaultSkill,
			wantErr:  ErrMalformedCredentials,
		},
		{
			name:     "provider rejects token",
			provider: &fakeProvider{authErr: errors.New("bad signature")},
			header:   "Bearer token",
			skill:    DefaultSkill,
			wantErr:  ErrAuthenticationFailed,
		},
		{
			name:     "provider reports expiry",
			provider: &fakeProvider{authErr: ErrTokenExpired},
			header:   "Bearer token",
			skill:    DefaultSkill,
			wantErr:  ErrTokenExpired,
		},
		{
			name: "expired context",
			provider: &fakeProvider{
				authCtx: &AuthContext{PrincipalID: "user-1", ExpiresAt: &expired},
			},
			header:  "Bearer token",
			skill:   DefaultSkill,
			wantErr: ErrTokenExpired,
		},
		{
			name:     "default skill skips authorize",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: false},
			header:   "Bearer token",
			skill:    DefaultSkill,
		},
		{
			name:     "authorized skill",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: true},
			header:   "Bearer token",
			skill:    "analyze",
		},
		{
			name:     "unauthorized skill",
			provider: &fakeProvider{authCtx: validContext(), authorizeOK: false},
			header:   "Bearer token",
			skill:    "analyze",
			wantErr:  ErrAuthorizationFailed,
		},
		{
			name:     "authorize error",
			provider: &fakeProvider{authCtx: validContext(), authorizeErr: errors.New("lookup failed")},
			header:   "Bearer token",
			skill:    "analyze",
			wantErr:  ErrAuthorizationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.provider)

			authCtx, err := gate.Verify(context.Background(), tt.header, tt.skill)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				if gate.Current() != nil {
					t.Error("failed Verify() should not cache a context")
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if authCtx == nil {
				t.Fatal("Verify() returned nil context on success")
			}
			if gate.Current() != authCtx {
				t.Error("successful Verify() should cache the context")
			}
			if tt.skill == DefaultSkill && tt.provider.authorizedSkill != "" {
				t.Error("default skill should not call Authorize")
			}
		})
	}
}

func TestAuthContext_HasScope(t *testing.T) {
	authCtx := &AuthContext{Scopes: []string{"skill:analyze", "skill:echo"}}

	if !authCtx.HasScope("skill:analyze") {
		t.Error("HasScope(skill:analyze) = false, want true")
	}
	if authCtx.HasScope("skill:admin") {
		t.Error("HasScope(skill:admin) = true, want false")
	}
	if ScopeForSkill("analyze") != "skill:analyze" {
		t.Errorf("ScopeForSkill = %q, want %q", ScopeForSkill("analyze"), "skill:analyze")
	}
}
