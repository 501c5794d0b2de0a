// Package micropub implements the Micropub HTTP endpoint using chi.
package micropub

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/wunjo/internal/indieauth"
)

type ctxKey int

const tokenKey ctxKey = iota

// TokenFromContext returns the verified token stored by AuthMiddleware.
func TokenFromContext(ctx context.Context) *indieauth.Token {
	tok, _ := ctx.Value(tokenKey).(*indieauth.Token)
	return tok
}

// maxFormMemory caps how much of a multipart body stays in memory.
const maxFormMemory = 32 << 20

// AuthMiddleware returns middleware that verifies the request's bearer token
// and stores the result in the request context. Form bodies are parsed here
// because clients may send the token as an access_token form field.
func AuthMiddleware(verifier *indieauth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := parseForm(r); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
				return
			}
			tok, err := verifier.Verify(r.Context(), TokenFromRequest(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token verification failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey, tok)))
		})
	}
}

func parseForm(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		return r.ParseMultipartForm(maxFormMemory)
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		return r.ParseForm()
	}
	return nil
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the access_token form field.
func TokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.PostFormValue("access_token")
}
