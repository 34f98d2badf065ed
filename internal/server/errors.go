package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Sentinel errors for the auth and upload flows. Handlers wrap them with
// fmt.Errorf("...: %w", err) and the boundary maps them to HTTP statuses
// via writeError, so every code path produces exactly one response.
var (
	// ErrMissingFields indicates a required request field was absent.
	ErrMissingFields = errors.New("username and password required")

	// ErrInvalidCredentials covers both unknown-username and
	// wrong-password so responses stay identical for the two cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoToken indicates the session cookie was absent.
	ErrNoToken = errors.New("no session token")

	// ErrBadToken indicates the session token failed signature
	// verification or has expired.
	ErrBadToken = errors.New("invalid or expired token")

	// ErrNoFile indicates an upload request carried no file part.
	ErrNoFile = errors.New("no file uploaded")

	// ErrFileTooLarge indicates the upload exceeded the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTypeNotAllowed indicates the declared content type is not on
	// the configured allow-list.
	ErrTypeNotAllowed = errors.New("file type not allowed")

	// ErrUserNotFound is returned by UserStore lookups for unknown usernames.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned by UserStore.Create on a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")
)

// messageResp is the JSON envelope used by the auth routes.
type messageResp struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResp{Message: msg})
}

// writeError maps an error to its HTTP status and client message.
// Unrecognised errors become a logged 500; nothing is left unanswered.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingFields):
		writeMessage(w, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, ErrNoToken):
		writeMessage(w, http.StatusUnauthorized, "Access denied")
	case errors.Is(err, ErrBadToken):
		writeMessage(w, http.StatusForbidden, "Invalid token")
	case errors.Is(err, ErrNoFile):
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
	case errors.Is(err, ErrFileTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, ErrTypeNotAllowed):
		writeMessage(w, http.StatusUnsupportedMediaType, "File type not allowed")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("internal error")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
