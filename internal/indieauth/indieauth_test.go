package indieauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/wunjo/internal/apperr"
)

func TestVerify_Disabled(t *testing.T) {
	v := NewVerifier("", false)
	tok, err := v.Verify(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, action := range []string{"create", "update", "delete", "undelete", "media"} {
		if !tok.HasScope(action) {
			t.Errorf("disabled verifier should grant %q", action)
		}
	}
}

func TestVerify_Endpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"me":        "https://site.tld",
			"client_id": "https://client.example",
			"scope":     "create update",
		})
	}))
	defer server.Close()

	v := NewVerifier(server.URL, true)
	tok, err := v.Verify(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Me != "https://site.tld" {
		t.Errorf("me = %q", tok.Me)
	}
	if !tok.HasScope("update") || tok.HasScope("delete") {
		t.Errorf("scope = %q parsed wrong", tok.Scope)
	}

	if _, err := v.Verify(context.Background(), "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("bad token error = %v, want ErrUnauthorized", err)
	}
	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("missing token error = %v, want ErrUnauthorized", err)
	}
}

func TestVerify_NoIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"scope": "create"})
	}))
	defer server.Close()

	v := NewVerifier(server.URL, true)
	if _, err := v.Verify(context.Background(), "abc"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestHasScope(t *testing.T) {
	cases := []struct {
		scope  string
		action string
		want   bool
	}{
		{"create", "create", true},
		{"post", "create", true},
		{"create", "media", true},
		{"media", "media", true},
		{"update", "update", true},
		{"delete", "delete", true},
		{"delete", "undelete", true},
		{"create", "delete", false},
		{"update", "create", false},
		{"", "create", false},
		{"create update delete", "undelete", true},
	}
	for _, tc := range cases {
		tok := &Token{Scope: tc.scope}
		if got := tok.HasScope(tc.action); got != tc.want {
			t.Errorf("HasScope(%q) with scope %q = %v, want %v", tc.action, tc.scope, got, tc.want)
		}
	}
}
