package micropub

import (
	"net/http"
	"strconv"
)

// defaultMediaLimit is the page size for media listings.
const defaultMediaLimit = 10

// MediaQuery handles GET /media.
func (h *Handler) MediaQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") != "source" {
		writeError(w, http.StatusBadRequest, "invalid_request", "unsupported query")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = defaultMediaLimit
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	urls, total, err := h.pub.ListMedia(r.Context(), limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}
	items := make([]map[string]string, 0, len(urls))
	for _, u := range urls {
		items = append(items, map[string]string{"url": u})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

// MediaUpload handles POST /media: a multipart body with the upload in the
// file or photo field.
func (h *Handler) MediaUpload(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, "media") {
		return
	}
	if r.MultipartForm == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected a multipart body")
		return
	}
	for _, field := range fileFields {
		for _, fh := range r.MultipartForm.File[field] {
			att, err := readUpload(fh.Filename, fh)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "unreadable upload "+fh.Filename)
				return
			}
			path, err := h.pub.UploadMedia(r.Context(), att)
			if err != nil {
				h.handleError(w, err)
				return
			}
			w.Header().Set("Location", h.cfg.Me+"/"+path)
			w.WriteHeader(http.StatusCreated)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "invalid_request", "no file in request")
}
