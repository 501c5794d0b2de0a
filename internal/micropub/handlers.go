package micropub

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/mf"
	"github.com/starford/wunjo/internal/publish"
	"github.com/starford/wunjo/internal/update"
)

// SyndicationTarget is one entry in the syndicate-to configuration.
type SyndicationTarget struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// EndpointConfig is what the endpoint advertises to Micropub clients.
type EndpointConfig struct {
	Me            string
	MediaEndpoint string
	SyndicateTo   []SyndicationTarget
}

// Handler holds the Micropub route handlers.
type Handler struct {
	pub *publish.Publisher
	cfg EndpointConfig
}

// NewHandler creates a new Handler.
func NewHandler(pub *publish.Publisher, cfg EndpointConfig) *Handler {
	cfg.Me = strings.TrimSuffix(cfg.Me, "/")
	if cfg.SyndicateTo == nil {
		cfg.SyndicateTo = []SyndicationTarget{}
	}
	return &Handler{pub: pub, cfg: cfg}
}

// Query handles GET /micropub.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch q.Get("q") {
	case "config":
		writeJSON(w, http.StatusOK, map[string]any{
			"media-endpoint": h.cfg.MediaEndpoint,
			"syndicate-to":   h.cfg.SyndicateTo,
		})
	case "syndicate-to":
		writeJSON(w, http.StatusOK, map[string]any{
			"syndicate-to": h.cfg.SyndicateTo,
		})
	case "source":
		postURL := q.Get("url")
		if postURL == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "source query needs a url")
			return
		}
		src, err := h.pub.Source(r.Context(), postURL, sourceProperties(q))
		if err != nil {
			h.handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, src)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unsupported query")
	}
}

// sourceProperties collects the requested property filter, accepting both the
// repeated and the bare field name.
func sourceProperties(q url.Values) []string {
	props := q["properties[]"]
	if v := q.Get("properties"); v != "" {
		props = append(props, v)
	}
	return props
}

// Mutate handles POST /micropub: create, update, delete, and undelete.
func (h *Handler) Mutate(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.mutateJSON(w, r)
		return
	}
	h.mutateForm(w, r)
}

func (h *Handler) mutateJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}
	doc := gjson.ParseBytes(body)
	action := doc.Get("action").String()
	if action == "" {
		action = "create"
	}
	if !h.allowed(w, r, action) {
		return
	}

	switch action {
	case "create":
		h.create(w, r, mf.FromJSON(body), nil)
	case "update":
		in := update.Instruction{
			Replace: rawValue(doc.Get("replace")),
			Add:     rawValue(doc.Get("add")),
			Delete:  rawValue(doc.Get("delete")),
		}
		if err := h.pub.Update(r.Context(), doc.Get("url").String(), in); err != nil {
			h.handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "delete":
		if err := h.pub.Delete(r.Context(), doc.Get("url").String()); err != nil {
			h.handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "undelete":
		if err := h.pub.Undelete(r.Context(), doc.Get("url").String()); err != nil {
			h.handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown action "+action)
	}
}

func rawValue(res gjson.Result) json.RawMessage {
	if !res.Exists() {
		return nil
	}
	return json.RawMessage(res.Raw)
}

// fileFields are the multipart field names that carry uploads.
var fileFields = []string{"photo", "photo[]", "file", "file[]"}

func (h *Handler) mutateForm(w http.ResponseWriter, r *http.Request) {
	action := r.PostFormValue("action")
	if action == "" {
		action = "create"
	}
	if !h.allowed(w, r, action) {
		return
	}

	switch action {
	case "create":
		values := url.Values{}
		for key, vals := range r.PostForm {
			values[key] = vals
		}
		var attachments []publish.Attachment
		if r.MultipartForm != nil {
			for _, field := range fileFields {
				for _, fh := range r.MultipartForm.File[field] {
					att, err := readUpload(fh.Filename, fh)
					if err != nil {
						writeError(w, http.StatusBadRequest, "invalid_request", "unreadable upload "+fh.Filename)
						return
					}
					attachments = append(attachments, att)
					values.Add(field, fh.Filename)
				}
			}
		}
		h.create(w, r, mf.FromForm(values), attachments)
	case "delete":
		if err := h.pub.Delete(r.Context(), r.PostFormValue("url")); err != nil {
			h.handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "undelete":
		if err := h.pub.Undelete(r.Context(), r.PostFormValue("url")); err != nil {
			h.handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown action "+action)
	}
}

func readUpload(filename string, fh *multipart.FileHeader) (publish.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return publish.Attachment{}, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return publish.Attachment{}, err
	}
	return publish.Attachment{Filename: filename, Content: content}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, rec *mf.Record, attachments []publish.Attachment) {
	clientID := ""
	if tok := TokenFromContext(r.Context()); tok != nil {
		clientID = tok.ClientID
	}
	refID, err := h.pub.Create(r.Context(), rec, attachments, clientID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	w.Header().Set("Location", h.cfg.Me+"/"+refID)
	w.WriteHeader(http.StatusCreated)
}

// allowed enforces the token scope for an action.
func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, action string) bool {
	tok := TokenFromContext(r.Context())
	if tok == nil || !tok.HasScope(action) {
		writeError(w, http.StatusForbidden, "insufficient_scope", "token does not allow "+action)
		return false
	}
	return true
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "invalid_request", "post not found")
	case errors.Is(err, apperr.ErrNoChange),
		errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "token verification failed")
	default:
		slog.Error("micropub request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
