package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// JWTProvider validates JWT bearer tokens against a JWKS endpoint.
// The JWKS is cached and auto-refreshed to handle key rotation.
type JWTProvider struct {
	jwksURL  string
	cache    *jwk.Cache
	issuer   string
	audience string
}

// NewJWTProvider creates a provider that auto-fetches JWKS from the
// identity provider. The initial fetch validates the configuration.
func NewJWTProvider(jwksURL, issuer, audience string) (*JWTProvider, error) {
	ctx := context.Background()

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	return &JWTProvider{
		jwksURL:  jwksURL,
		cache:    cache,
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Authenticate verifies the token signature, expiry, issuer, and
// audience, then builds an AuthContext from the subject and scope
// claims.
func (p *JWTProvider) Authenticate(ctx context.Context, tokenString string) (*AuthContext, error) {
	keyset, err := p.cache.Get(ctx, p.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	options := []jwt.ParseOption{
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
	}
	if p.issuer != "" {
		options = append(options, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		options = append(options, jwt.WithAudience(p.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	authCtx := &AuthContext{
		PrincipalID: token.Subject(),
		Scopes:      extractScopes(token),
	}
	if exp := token.Expiration(); !exp.IsZero() {
		authCtx.ExpiresAt = &exp
	}

	return authCtx, nil
}

// Authorize checks the context for the skill's scope.
func (p *JWTProvider) Authorize(_ context.Context, authCtx *AuthContext, skill string) (bool, error) {
	if authCtx == nil {
		return false, errors.New("nil auth context")
	}
	return authCtx.HasScope(ScopeForSkill(skill)), nil
}

// extractScopes reads both the OAuth2 "scope" (space-separated string)
// and "scopes" (string array) claim forms.
func extractScopes(token jwt.Token) []string {
	var scopes []string

	if raw, ok := token.Get("scope"); ok {
		if s, ok := raw.(string); ok && s != "" {
			scopes = append(scopes, strings.Fields(s)...)
		}
	}

	if raw, ok := token.Get("scopes"); ok {
		switch v := raw.(type) {
		case []string:
			scopes = append(scopes, v...)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					scopes = append(scopes, s)
				}
			}
		}
	}

	return scopes
}
