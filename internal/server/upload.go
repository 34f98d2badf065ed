package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// uploadResp is the JSON response returned after a successful upload.
type uploadResp struct {
	URL string `json:"url"`
}

// uploadTimeout bounds how long a single upload may stream to storage.
const uploadTimeout = 5 * time.Minute

// generateBlobName builds the stored filename for an upload:
// <fieldname>-<unix millis>-<random 0..1e9><original extension>.
// Timestamp plus random suffix makes concurrent uploads of the same
// original name land on distinct files without locking.
func generateBlobName(fieldName, originalName string) string {
	suffix := rand.Int64N(1_000_000_000)
	ext := sanitizeExt(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%d-%d%s", fieldName, time.Now().UnixMilli(), suffix, ext)
}

// sanitizeExt keeps only a plain ".xyz" extension; anything containing
// path separators or further dots is dropped rather than stored.
func sanitizeExt(ext string) string {
	if ext == "" || ext == "." {
		return ""
	}
	rest := ext[1:]
	if rest == "" || strings.ContainsAny(rest, `/\.`) {
		return ""
	}
	return ext
}

// uploadHandler handles POST /upload for authenticated users.
//
// The request is multipart form data with a single "file" part. The
// part is streamed to the blob store under a generated name and the
// response carries the public URL where the file can be fetched.
func (cfg Config) uploadHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Upload.MaxSizeBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.Upload.MaxSizeBytes)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			writeError(w, r, ErrNoFile)
			return
		}

		part, err := nextFilePart(mr)
		if err != nil {
			if maxBytesExceeded(err) {
				writeError(w, r, ErrFileTooLarge)
				return
			}
			writeError(w, r, ErrNoFile)
			return
		}
		defer func() { _ = part.Close() }()

		contentType := part.Header.Get("Content-Type")
		if !cfg.Upload.typeAllowed(contentType) {
			writeError(w, r, ErrTypeNotAllowed)
			return
		}

		name := generateBlobName(part.FormName(), part.FileName())

		ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
		defer cancel()

		size, err := cfg.Blobs.Put(ctx, name, contentType, part)
		if err != nil {
			if maxBytesExceeded(err) {
				writeError(w, r, ErrFileTooLarge)
				return
			}
			writeError(w, r, fmt.Errorf("store upload: %w", err))
			return
		}

		zerolog.Ctx(r.Context()).Info().
			Str("user_id", UserIDFromContext(r.Context())).
			Str("name", name).
			Str("content_type", contentType).
			Int64("bytes", size).
			Msg("file stored")
		recordUpload(size)

		writeJSON(w, http.StatusOK, uploadResp{
			URL: strings.TrimRight(cfg.BaseURL, "/") + "/uploads/" + name,
		})
	}))
}

// nextFilePart scans the multipart stream for the first part whose
// form name is "file" and that carries a filename. Plain form fields
// named "file" are not file payloads and are skipped. io.EOF without
// a match means no file was sent.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		return part, nil
	}
}

// maxBytesExceeded reports whether err came from http.MaxBytesReader.
func maxBytesExceeded(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
