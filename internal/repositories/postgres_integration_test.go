package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"video_likes", "videos", "sessions", "users"} {
		if _, err := testPool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset table %s: %v", table, err)
		}
	}
}

func TestPostgresVideoRepository_CreateAssignsServerFields(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresVideoRepository(testPool, "http://host/video")

	first, err := repo.Create(ctx, models.Video{Title: "Intro", Duration: 30, ContentType: "video/mp4"})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	second, err := repo.Create(ctx, models.Video{Title: "Outro", Duration: 60, ContentType: "video/mp4"})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	if first.ID <= 0 || second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}
	wantURL := fmt.Sprintf("http://host/video/%d/data", first.ID)
	if first.DataURL != wantURL {
		t.Fatalf("expected data url %q got %q", wantURL, first.DataURL)
	}
	if first.State != models.StatePending || first.Likes != 0 {
		t.Fatalf("unexpected initial state %+v", first)
	}

	fetched, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if fetched.Title != "Intro" || fetched.DataURL != wantURL {
		t.Fatalf("unexpected video fetched: %+v", fetched)
	}

	if _, err := repo.Get(ctx, first.ID+second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPostgresVideoRepository_LikeUnlike(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresVideoRepository(testPool, "http://host/video")

	created, err := repo.Create(ctx, models.Video{Title: "Intro", Duration: 30})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	if err := repo.Like(ctx, created.ID, "alice"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := repo.Like(ctx, created.ID, "alice"); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("expected ErrAlreadyLiked, got %v", err)
	}
	if err := repo.Like(ctx, created.ID, "bob"); err != nil {
		t.Fatalf("like: %v", err)
	}

	video, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Likes != 2 || !reflect.DeepEqual(video.UserLikes, []string{"alice", "bob"}) {
		t.Fatalf("unexpected like state: %+v", video)
	}

	if err := repo.Unlike(ctx, created.ID, "carol"); !errors.Is(err, ErrNotLiked) {
		t.Fatalf("expected ErrNotLiked, got %v", err)
	}
	if err := repo.Unlike(ctx, created.ID, "alice"); err != nil {
		t.Fatalf("unlike: %v", err)
	}

	video, err = repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.Likes != 1 || !reflect.DeepEqual(video.UserLikes, []string{"bob"}) {
		t.Fatalf("unexpected like state after unlike: %+v", video)
	}

	if err := repo.Like(ctx, created.ID+12345, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound liking unknown video, got %v", err)
	}
	if err := repo.Unlike(ctx, created.ID+12345, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound unliking unknown video, got %v", err)
	}
}

func TestPostgresVideoRepository_Search(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresVideoRepository(testPool, "http://host/video")

	seed := []models.Video{
		{Title: "Intro", Duration: 10},
		{Title: "Intro", Duration: 45},
		{Title: "Outro", Duration: 30},
	}
	for _, v := range seed {
		if _, err := repo.Create(ctx, v); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	byName, err := repo.FindByName(ctx, "Intro")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(byName))
	}

	short, err := repo.FindByDurationLessThan(ctx, 30)
	if err != nil {
		t.Fatalf("find by duration: %v", err)
	}
	if len(short) != 1 || short[0].Duration != 10 {
		t.Fatalf("expected strict duration bound, got %+v", short)
	}

	none, err := repo.FindByName(ctx, "Missing")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestPostgresVideoRepository_MarkReady(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresVideoRepository(testPool, "http://host/video")

	created, err := repo.Create(ctx, models.Video{Title: "Intro", Duration: 30})
	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	if err := repo.MarkReady(ctx, created.ID); err != nil {
		t.Fatalf("mark ready: %v", err)
	}

	video, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if video.State != models.StateReady {
		t.Fatalf("expected ready state, got %q", video.State)
	}

	if err := repo.MarkReady(ctx, created.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	if _, err := repo.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresSessionStore_SaveFindDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresSessionStore(testPool)

	session := auth.Session{
		Token:     uuid.NewString(),
		UserID:    uuid.NewString(),
		Kind:      auth.KindAccess,
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond),
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	found, err := store.Find(ctx, session.Token)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if found.UserID != session.UserID || found.Kind != auth.KindAccess {
		t.Fatalf("unexpected session fetched: %+v", found)
	}

	if err := store.Delete(ctx, session.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.Find(ctx, session.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, session.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}
