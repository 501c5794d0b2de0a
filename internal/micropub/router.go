package micropub

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/wunjo/internal/indieauth"
)

// NewRouter creates a chi router with the Micropub and media routes mounted
// behind token verification.
func NewRouter(h *Handler, verifier *indieauth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(verifier))

	r.Get("/micropub", h.Query)
	r.Post("/micropub", h.Mutate)

	r.Get("/media", h.MediaQuery)
	r.Post("/media", h.MediaUpload)

	return r
}
