package server

import (
	"errors"
	"net/http"
)

// registerHandler handles POST /register.
//
// Missing fields are a 400. An already-taken username is answered with
// a 200 and a "please login" message rather than an error status; the
// client treats it as a successful outcome and switches to the login
// flow. New users get their password bcrypt-hashed and a 201.
func (a AuthConfig) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeCredentials(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if _, err := a.Users.GetByUsername(r.Context(), body.Username); err == nil {
			writeMessage(w, http.StatusOK, "Account exists please login")
			return
		} else if !errors.Is(err, ErrUserNotFound) {
			writeError(w, r, err)
			return
		}

		hash, err := a.hashPassword(body.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if _, err := a.Users.Create(r.Context(), body.Username, hash); err != nil {
			// Lost the race against a concurrent registration for the
			// same username; report it the same way as the lookup path.
			if errors.Is(err, ErrUsernameTaken) {
				writeMessage(w, http.StatusOK, "Account exists please login")
				return
			}
			writeError(w, r, err)
			return
		}

		writeMessage(w, http.StatusCreated, "User registered")
	}
}
