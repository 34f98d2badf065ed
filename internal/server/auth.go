// auth.go - Stateless session cookies and authentication helpers.
//
// Implements JWT cookie sessions, login/logout handlers, and
// store-backed credential checks. Tokens are signed with HS256 and
// verified without any server-side lookup.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds authentication-related configuration used by the
// HTTP handlers (signing secret, cookie settings, credential store).
//
// Unit tests construct this directly with an in-memory store.
type AuthConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	SecureCookie bool // set for production deployments behind TLS
	BcryptCost   int

	Users UserStore
}

type ctxUserKey struct{}

// UserIDFromContext returns the authenticated user ID attached by
// requireAuth, or "" when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserKey{}).(string)
	return id
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return "token"
	}
	return a.CookieName
}

func (a AuthConfig) ttl() time.Duration {
	if a.TTL <= 0 {
		return sessionTTL
	}
	return a.TTL
}

func (a AuthConfig) bcryptCost() int {
	if a.BcryptCost <= 0 {
		return bcrypt.DefaultCost
	}
	return a.BcryptCost
}

// hashPassword generates a bcrypt hash of the password.
func (a AuthConfig) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its stored hash.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// makeToken issues a signed session token for the given user ID.
func (a AuthConfig) makeToken(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.ttl())
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(a.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// verifyToken checks signature and expiry and returns the user ID.
func (a AuthConfig) verifyToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(a.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrBadToken)
	}
	return claims.Subject, nil
}

func (a AuthConfig) sessionCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName(),
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   a.SecureCookie,
	}
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentialsReq, error) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, fmt.Errorf("%w: bad body", ErrMissingFields)
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		return body, ErrMissingFields
	}
	return body, nil
}

// loginHandler verifies credentials against the store and issues a
// session cookie. Unknown usernames and wrong passwords produce the
// identical response so usernames cannot be enumerated.
func (a AuthConfig) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeCredentials(r)
		if err != nil {
			writeError(w, r, ErrInvalidCredentials)
			recordLogin(false)
			return
		}

		user, err := a.Users.GetByUsername(r.Context(), body.Username)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				writeError(w, r, ErrInvalidCredentials)
			} else {
				writeError(w, r, err)
			}
			recordLogin(false)
			return
		}

		if !verifyPassword(body.Password, user.PasswordHash) {
			writeError(w, r, ErrInvalidCredentials)
			recordLogin(false)
			return
		}

		tok, exp, err := a.makeToken(user.ID)
		if err != nil {
			writeError(w, r, err)
			recordLogin(false)
			return
		}

		// The token travels only in the cookie, never in the body.
		http.SetCookie(w, a.sessionCookie(tok, exp))
		writeMessage(w, http.StatusOK, "Logged in")
		recordLogin(true)
	}
}

// logoutHandler clears the session cookie unconditionally.
func (a AuthConfig) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := a.sessionCookie("", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
		writeMessage(w, http.StatusOK, "Logged out")
	}
}

// requireAuth guards protected routes. A missing cookie is 401; a
// cookie that fails verification is 403. On success the decoded user
// ID is attached to the request context.
func (a AuthConfig) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(a.cookieName())
		if err != nil {
			writeError(w, r, ErrNoToken)
			return
		}
		userID, err := a.verifyToken(c.Value)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
