// Package testutil provides shared test helpers for setting up publishers
// backed by an in-memory store.
package testutil

import (
	"testing"

	"github.com/starford/wunjo/internal/content"
	"github.com/starford/wunjo/internal/gitstore"
	"github.com/starford/wunjo/internal/publish"
)

// SiteURL is the canonical origin test publishers are configured with.
const SiteURL = "https://site.tld"

// NewPublisher creates a publisher writing into a fresh in-memory store.
func NewPublisher(t *testing.T) (*publish.Publisher, *gitstore.Memory) {
	t.Helper()
	store := gitstore.NewMemory()
	fmtr := content.NewFormatter(content.Config{
		Me:         SiteURL,
		ContentDir: "src",
		MediaDir:   "uploads",
	})
	pub := publish.New(store, fmtr, nil, publish.Config{
		Me:     SiteURL,
		Branch: "main",
	})
	return pub, store
}
