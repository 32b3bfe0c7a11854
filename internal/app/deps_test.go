package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidvault/backend/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		StoreDriver: config.DriverMemory,
		DataURLBase: "http://localhost:8080/video",
		BlobDir:     t.TempDir(),
		SQLitePath:  filepath.Join(t.TempDir(), "vidvault.db"),
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  24 * time.Hour,
		RateLimit: config.RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
			Burst:    10,
			TTL:      5 * time.Minute,
		},
	}
}

func TestBuildDependenciesMemoryDriver(t *testing.T) {
	cfg := testConfig(t)

	deps, mirror, cleanup, err := buildDependencies(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildDependencies: %v", err)
	}
	defer cleanup()

	if deps.Videos == nil || deps.Users == nil || deps.Sessions == nil || deps.Blobs == nil || deps.Limiter == nil {
		t.Fatalf("expected all core dependencies wired, got %+v", deps)
	}
	if mirror != nil {
		t.Fatal("expected no mirror without an object store bucket")
	}
	if deps.Mirror != nil {
		t.Fatal("expected nil mirror dependency without an object store bucket")
	}
}

func TestBuildDependenciesSQLiteDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = config.DriverSQLite

	deps, _, cleanup, err := buildDependencies(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildDependencies: %v", err)
	}
	defer cleanup()

	if deps.Videos == nil {
		t.Fatal("expected sqlite video store wired")
	}
}

func TestBuildDependenciesUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "cassandra"

	if _, _, _, err := buildDependencies(context.Background(), cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}
