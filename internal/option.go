package internal

import (
	"github.com/starford/wunjo/internal/gitstore"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	store  gitstore.Store
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStore overrides the content store, mainly for tests.
func WithStore(store gitstore.Store) Option {
	return func(a *application) {
		a.store = store
	}
}
