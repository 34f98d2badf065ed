package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// serveUploadHandler handles GET /uploads/{name} and streams the
// stored bytes back verbatim. Uploaded files are public by URL; the
// generated names are the only access control, as in the original
// service.
func (cfg Config) serveUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		blob, err := cfg.Blobs.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, ErrBlobNotFound) {
				http.NotFound(w, r)
				return
			}
			writeError(w, r, fmt.Errorf("open upload: %w", err))
			return
		}
		defer func() { _ = blob.Reader.Close() }()

		ct := blob.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		if blob.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
		}
		if !blob.ModTime.IsZero() {
			w.Header().Set("Last-Modified", blob.ModTime.UTC().Format(http.TimeFormat))
		}

		if _, err := io.Copy(w, blob.Reader); err != nil {
			// Headers are gone; all we can do is log the broken stream.
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("name", name).Msg("serving upload interrupted")
		}
	}
}
