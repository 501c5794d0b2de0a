// Package indieauth verifies bearer tokens against an IndieAuth token
// endpoint and checks Micropub scopes.
package indieauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/starford/wunjo/internal/apperr"
)

// Token is the identity a verified bearer token resolves to.
type Token struct {
	Me       string `json:"me"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// HasScope reports whether the token authorizes an action. The legacy
// "post" scope counts as create, and create implies media uploads.
func (t *Token) HasScope(action string) bool {
	scopes := strings.Fields(t.Scope)
	has := func(name string) bool { return slices.Contains(scopes, name) }
	switch action {
	case "create":
		return has("create") || has("post")
	case "media":
		return has("media") || has("create") || has("post")
	case "update":
		return has("update")
	case "delete", "undelete":
		return has("delete")
	}
	return false
}

// Verifier resolves bearer tokens through a remote token endpoint.
type Verifier struct {
	endpoint string
	enabled  bool
	http     *http.Client
}

// NewVerifier creates a verifier. With enabled false every request is
// granted a full-scope token, which is only suitable for local development.
func NewVerifier(endpoint string, enabled bool) *Verifier {
	return &Verifier{
		endpoint: endpoint,
		enabled:  enabled,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify resolves a bearer token to its identity and scopes.
func (v *Verifier) Verify(ctx context.Context, token string) (*Token, error) {
	if !v.enabled {
		return &Token{Scope: "create update delete media"}, nil
	}
	if token == "" {
		return nil, fmt.Errorf("indieauth: missing token: %w", apperr.ErrUnauthorized)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("indieauth: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indieauth: verify token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indieauth: token endpoint status %d: %w",
			resp.StatusCode, apperr.ErrUnauthorized)
	}
	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("indieauth: decode response: %w", err)
	}
	if tok.Me == "" {
		return nil, fmt.Errorf("indieauth: token has no identity: %w", apperr.ErrUnauthorized)
	}
	return &tok, nil
}
