package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fileshare/internal/db"
	"fileshare/internal/server"
)

func main() {
	// Optional .env file for local development; real deployments set
	// the environment directly.
	_ = godotenv.Load()

	env := getenvDefault("FS_ENV", "development")

	logger := newLogger(env)

	addr := getenvDefault("FS_ADDR", ":5000")
	baseURL := getenvDefault("FS_BASE_URL", "http://localhost:5000")

	auth := server.AuthConfig{
		Secret:       os.Getenv("FS_JWT_SECRET"),
		TTL:          1 * time.Hour,
		CookieName:   "token",
		SecureCookie: env == "production",
	}

	// Safety: refuse to start without a signing secret.
	if auth.Secret == "" {
		logger.Fatal().Msg("FS_JWT_SECRET is not set")
	}

	upload, err := loadUploadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid upload configuration")
	}

	// Database
	dbCfg, err := loadDBConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database configuration")
	}
	dbConn, err := server.OpenDB(dbCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer func() { _ = dbConn.Close() }()

	logger.Info().Msg("running migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	logger.Info().Msg("migrations complete")

	auth.Users = server.NewPostgresUserStore(dbConn)

	blobs, err := newBlobStore(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("blob store setup failed")
	}

	srv, err := server.New(server.Config{
		Addr:    addr,
		BaseURL: baseURL,
		Env:     env,
		Auth:    auth,
		Upload:  upload,
		Users:   auth.Users,
		Blobs:   blobs,
		Pinger:  dbConn,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server setup failed")
	}

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("env", env).Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Block until either a shutdown signal arrives or the server fails.
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		// Give in-flight requests 5 seconds to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
			os.Exit(1)
		}
		logger.Info().Msg("shutdown complete")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}
}

// newLogger builds the process logger: JSON in production, console
// writer for development.
func newLogger(env string) zerolog.Logger {
	if env == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// loadUploadConfig reads the optional upload limits. Both default to
// off, matching the historical behaviour of the service.
func loadUploadConfig() (server.UploadConfig, error) {
	maxBytes, err := server.ParseMaxUploadBytes(os.Getenv("FS_MAX_UPLOAD_BYTES"))
	if err != nil {
		return server.UploadConfig{}, err
	}
	return server.UploadConfig{
		MaxSizeBytes: maxBytes,
		AllowedTypes: server.ParseAllowedTypes(os.Getenv("FS_ALLOWED_TYPES")),
	}, nil
}

// loadDBConfig reads DATABASE_URL plus the optional pool tuning knobs.
func loadDBConfig() (server.DBConfig, error) {
	cfg := server.DBConfig{URL: os.Getenv("DATABASE_URL")}
	if v := os.Getenv("FS_DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return server.DBConfig{}, fmt.Errorf("FS_DB_MAX_CONNS: invalid value %q", v)
		}
		cfg.MaxConns = n
	}
	if v := os.Getenv("FS_DB_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return server.DBConfig{}, fmt.Errorf("FS_DB_CONN_LIFETIME: invalid value %q", v)
		}
		cfg.ConnMaxLifetime = d
	}
	return cfg, nil
}

// newBlobStore picks the storage backend: the flat served directory on
// local disk by default, or MinIO when FS_STORAGE=minio.
func newBlobStore(logger zerolog.Logger) (server.BlobStore, error) {
	switch backend := getenvDefault("FS_STORAGE", "disk"); backend {
	case "minio":
		store, err := server.NewMinioStore(server.MinioOptions{
			Endpoint:  os.Getenv("FS_S3_ENDPOINT"),
			AccessKey: os.Getenv("FS_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("FS_S3_SECRET_KEY"),
			Bucket:    os.Getenv("FS_S3_BUCKET"),
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", "minio").Msg("blob store ready")
		return store, nil
	default:
		dir := getenvDefault("FS_UPLOAD_DIR", "uploads")
		store, err := server.NewDiskStore(dir)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("backend", "disk").Str("dir", dir).Msg("blob store ready")
		return store, nil
	}
}

// getenvDefault reads an environment variable and returns a default
// value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
