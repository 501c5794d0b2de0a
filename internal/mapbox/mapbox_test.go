package mapbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestStaticPair(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("access_token"); got != "tok" {
			t.Errorf("access_token = %q", got)
		}
		if !strings.Contains(r.URL.Path, "/static/-0.1,51.5,14/748x420@2x") {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch {
		case strings.Contains(r.URL.Path, "dark-v11"):
			_, _ = w.Write([]byte("darkpng"))
		case strings.Contains(r.URL.Path, "light-v11"):
			_, _ = w.Write([]byte("lightpng"))
		default:
			t.Errorf("unexpected style in %q", r.URL.Path)
		}
	}))
	defer server.Close()

	c := New("tok")
	c.base = server.URL
	pair, err := c.StaticPair(context.Background(), 51.5, -0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(pair.Dark) != "darkpng" || string(pair.Light) != "lightpng" {
		t.Errorf("pair = %q / %q", pair.Dark, pair.Light)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestStaticPair_FailedFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New("bad")
	c.base = server.URL
	if _, err := c.StaticPair(context.Background(), 51.5, -0.1); err == nil {
		t.Fatal("expected an error")
	}
}
