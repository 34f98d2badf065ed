package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// User is one credential-store record. PasswordHash is always a bcrypt
// hash; the plaintext password never touches storage.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore is the credential store used by registration and login.
// Implementations must keep usernames unique. Tests use an in-memory
// implementation; production uses PostgresUserStore.
type UserStore interface {
	// Create persists a new user and returns it with its assigned ID.
	// A duplicate username yields ErrUsernameTaken.
	Create(ctx context.Context, username, passwordHash string) (User, error)
	// GetByUsername returns the user or ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (User, error)
}

// PostgresUserStore implements UserStore on top of the users table.
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore wraps an open connection pool.
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// uniqueViolation is the Postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

func (s *PostgresUserStore) Create(ctx context.Context, username, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, username, password_hash, created_at`,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
