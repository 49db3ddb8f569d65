package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJWTProvider_Authenticate(t *testing.T) {
	provider, privateKey, issuer, audience := setupTestProvider(t)

	token, err := createTestJWT(privateKey, issuer, audience, "user-1", time.Now().Add(time.Hour), map[string]interface{}{
		"scope": "skill:analyze skill:echo",
	})
	if err != nil {
		t.Fatal(err)
	}

	authCtx, err := provider.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if authCtx.PrincipalID != "user-1" {
		t.Errorf("PrincipalID = %q, want %q", authCtx.PrincipalID, "user-1")
	}
	if !authCtx.HasScope("skill:analyze") {
		t.Error("context should carry skill:analyze scope")
	}
	if authCtx.ExpiresAt == nil || !authCtx.ExpiresAt.After(time.Now()) {
		t.Error("context should carry a future expiry")
	}
}

func TestJWTProvider_ExpiredToken(t *testing.T) {
	provider, privateKey, issuer, audience := setupTestProvider(t)

	token, err := createTestJWT(privateKey, issuer, audience, "user-1", time.Now().Add(-time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Authenticate(expired) error = %v, want ErrTokenExpired", err)
	}
}

func TestJWTProvider_WrongIssuerAndGarbage(t *testing.T) {
	provider, privateKey, _, audience := setupTestProvider(t)

	token, err := createTestJWT(privateKey, "https://wrong-issuer.com", audience, "user-1", time.Now().Add(time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := provider.Authenticate(context.Background(), token); err == nil {
		t.Error("Authenticate(wrong issuer) should fail")
	}
	if _, err := provider.Authenticate(context.Background(), "not.a.jwt"); err == nil {
		t.Error("Authenticate(garbage) should fail")
	}
}

func TestJWTProvider_ScopesArrayClaim(t *testing.T) {
	provider, privateKey, issuer, audience := setupTestProvider(t)

	token, err := createTestJWT(privateKey, issuer, audience, "user-1", time.Now().Add(time.Hour), map[string]interface{}{
		"scopes": []string{"skill:translate"},
	})
	if err != nil {
		t.Fatal(err)
	}

	authCtx, err := provider.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !authCtx.HasScope("skill:translate") {
		t.Error("context should carry skill:translate scope")
	}
}

func TestJWTProvider_Authorize(t *testing.T) {
	provider, _, _, _ := setupTestProvider(t)

	authCtx := &AuthContext{PrincipalID: "user-1", Scopes: []string{"skill:analyze"}}

	allowed, err := provider.Authorize(context.Background(), authCtx, "analyze")
	if err != nil || !allowed {
		t.Errorf("Authorize(analyze) = %v, %v, want true, nil", allowed, err)
	}

	allowed, err = provider.Authorize(context.Background(), authCtx, "admin")
	if err != nil || allowed {
		t.Errorf("Authorize(admin) = %v, %v, want false, nil", allowed, err)
	}

	if _, err := provider.Authorize(context.Background(), nil, "analyze"); err == nil {
		t.Error("Authorize(nil context) should error")
	}
}

// Full gate + JWT provider pipeline with a scoped bearer token.
func TestGateWithJWTProvider(t *testing.T) {
	provider, privateKey, issuer, audience := setupTestProvider(t)
	gate := NewGate(provider)

	token, err := createTestJWT(privateKey, issuer, audience, "user-1", time.Now().Add(time.Hour), map[string]interface{}{
		"scope": "skill:analyze",
	})
	if err != nil {
		t.Fatal(err)
	}

	authCtx, err := gate.Verify(context.Background(), "Bearer "+token, "analyze")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !authCtx.HasScope("skill:analyze") {
		t.Error("verified context should carry skill:analyze")
	}

	expired, err := createTestJWT(privateKey, issuer, audience, "user-1", time.Now().Add(-time.Hour), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gate.Verify(context.Background(), "Bearer "+expired, "analyze"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify(expired) error = %v, want ErrTokenExpired", err)
	}
}
