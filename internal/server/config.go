package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the server needs to run. It is assembled in
// main from the environment and passed into New; handlers receive their
// dependencies through it instead of reaching for globals.
type Config struct {
	Addr    string // e.g. ":8080"
	BaseURL string // public base address used to build upload URLs
	Env     string // "development" or "production"

	Auth   AuthConfig
	Upload UploadConfig

	Users UserStore
	Blobs BlobStore

	// Pinger is optional; when set it is probed by the health endpoint.
	Pinger Pinger
}

// UploadConfig bounds what the upload endpoint accepts. The zero value
// enforces nothing, matching the historical behaviour of the service.
type UploadConfig struct {
	// MaxSizeBytes limits the request body when > 0. Oversized uploads
	// map to 413.
	MaxSizeBytes int64
	// AllowedTypes is a MIME allow-list applied to the part's declared
	// Content-Type when non-empty. Disallowed types map to 415.
	AllowedTypes []string
}

func (u UploadConfig) typeAllowed(contentType string) bool {
	if len(u.AllowedTypes) == 0 {
		return true
	}
	// Compare against the media type only, ignoring parameters.
	mt := contentType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	for _, allowed := range u.AllowedTypes {
		if mt == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

// ParseMaxUploadBytes parses the FS_MAX_UPLOAD_BYTES value. An empty
// string means no limit.
func ParseMaxUploadBytes(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse max upload bytes: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("max upload bytes must not be negative: %d", n)
	}
	return n, nil
}

// ParseAllowedTypes splits the FS_ALLOWED_TYPES value (comma-separated
// MIME types). An empty string means every type is accepted.
func ParseAllowedTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is empty")
	}
	if c.Users == nil || c.Auth.Users == nil {
		return fmt.Errorf("user store is nil")
	}
	if c.Blobs == nil {
		return fmt.Errorf("blob store is nil")
	}
	return nil
}

// sessionTTL is how long an issued session token stays valid.
const sessionTTL = 1 * time.Hour
