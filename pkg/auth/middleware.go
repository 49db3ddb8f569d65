package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// SkillHeader carries the authorization skill hint on task requests.
// Requests without it are checked against the default skill.
const SkillHeader = "X-A2A-Skill"

type contextKey string

const authContextKey contextKey = "auth_context"

// Middleware verifies the request credential through the gate before
// passing control on. With no provider configured it is a pass-through.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		skill := r.Header.Get(SkillHeader)
		if skill == "" {
			skill = DefaultSkill
		}

		authCtx, err := g.Verify(r.Context(), r.Header.Get("Authorization"), skill)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromRequest returns the AuthContext attached by Middleware, or nil.
func FromRequest(r *http.Request) *AuthContext {
	if authCtx, ok := r.Context().Value(authContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// StatusForError maps verification errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrAuthorizationFailed):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrMalformedCredentials),
		errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusUnauthorized
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForError(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
