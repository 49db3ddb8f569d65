package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_PassThroughWithoutProvider(t *testing.T) {
	gate := NewGate(nil)

	var called bool
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/", nil))

	if !called {
		t.Error("handler should run without a provider")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMiddleware_BlocksBeforeHandler(t *testing.T) {
	gate := NewGate(&fakeProvider{authCtx: validContext(), authorizeOK: false})

	tests := []struct {
		name       string
		header     string
		skill      string
		wantStatus int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", "", http.StatusUnauthorized},
		{"unauthorized skill", "Bearer token", "analyze", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/tasks/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.skill != "" {
				req.Header.Set(SkillHeader, tt.skill)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Error("handler must not run when verification fails")
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddleware_AttachesAuthContext(t *testing.T) {
	gate := NewGate(&fakeProvider{authCtx: validContext(), authorizeOK: true})

	var got *AuthContext
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/tasks/", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set(SkillHeader, "analyze")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil {
		t.Fatal("handler should see the verified AuthContext")
	}
	if got.PrincipalID != "user-1" {
		t.Errorf("PrincipalID = %q, want %q", got.PrincipalID, "user-1")
	}
}
