package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memUserStore is the in-memory UserStore used as the test double for
// the Postgres-backed store.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]User)}
}

func (s *memUserStore) Create(_ context.Context, username, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return User{}, ErrUsernameTaken
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[username] = u
	return u, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// newTestConfig builds a Config backed by a memory user store and a
// disk store in a temp dir. Bcrypt cost is dialled down so the auth
// tests stay fast.
func newTestConfig(t *testing.T) Config {
	t.Helper()
	blobs, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	users := newMemUserStore()
	return Config{
		Addr:    ":0",
		BaseURL: "http://localhost:5000",
		Env:     "development",
		Auth: AuthConfig{
			Secret:     "test-secret",
			TTL:        1 * time.Hour,
			CookieName: "token",
			BcryptCost: 4,
			Users:      users,
		},
		Users: users,
		Blobs: blobs,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
