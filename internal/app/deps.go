package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/internal/blobs"
	"github.com/vidvault/backend/internal/config"
	"github.com/vidvault/backend/internal/db"
	"github.com/vidvault/backend/internal/handlers"
	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/internal/repositories"
	"github.com/vidvault/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers, picking the video store implementation from the configured
// driver. The returned cleanup releases whatever the chosen driver opened.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *blobs.Mirror, func(), error) {
	var (
		videoRepo    handlers.VideoStore
		userRepo     handlers.UserStore
		sessionStore auth.SessionStore
		cleanup      = func() {}
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		videoRepo = repositories.NewMemoryVideoRepository(cfg.DataURLBase)
		userRepo = repositories.NewMemoryUserRepository()
		sessionStore = auth.NewInMemorySessionStore()

	case config.DriverSQLite:
		repo, err := repositories.NewSQLiteVideoRepository(cfg.SQLitePath, cfg.DataURLBase)
		if err != nil {
			return handlers.Dependencies{}, nil, nil, err
		}
		videoRepo = repo
		userRepo = repositories.NewMemoryUserRepository()
		sessionStore = auth.NewInMemorySessionStore()
		cleanup = func() { _ = repo.Close() }

	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return handlers.Dependencies{}, nil, nil, err
		}
		videoRepo = repositories.NewPostgresVideoRepository(pool, cfg.DataURLBase)
		userRepo = repositories.NewPostgresUserRepository(pool)
		sessionStore = repositories.NewPostgresSessionStore(pool)
		cleanup = pool.Close

	default:
		return handlers.Dependencies{}, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	sink := storage.NewFSBlobStorage(cfg.BlobDir)

	var mirror *blobs.Mirror
	if cfg.ObjectStore.Bucket != "" {
		s3Store, err := storage.NewS3BlobStorage(ctx, cfg.ObjectStore)
		if err != nil {
			cleanup()
			return handlers.Dependencies{}, nil, nil, err
		}
		mirror = blobs.NewMirror(sink, s3Store, blobs.MirrorConfig{
			QueueSize: cfg.MirrorQueue,
			Workers:   cfg.MirrorWorkers,
		}, logger)
	}

	deps := handlers.Dependencies{
		Videos:   videoRepo,
		Users:    userRepo,
		Sessions: auth.NewManager(cfg.AccessTTL, cfg.RefreshTTL, sessionStore),
		Blobs:    sink,
		Limiter:  middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, cfg.RateLimit.TTL),
	}
	if mirror != nil {
		deps.Mirror = mirror
	}

	return deps, mirror, cleanup, nil
}
