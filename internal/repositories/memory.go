package repositories

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vidvault/backend/internal/models"
)

type videoRecord struct {
	video  models.Video
	likers map[string]struct{}
}

// MemoryVideoRepository keeps videos in a process-local map. Identifiers come
// from an atomic counter so concurrent creates still produce unique,
// increasing ids; the read-modify-write of like state runs under the store
// mutex so concurrent likes by the same user cannot double count.
type MemoryVideoRepository struct {
	dataURLBase string

	nextID atomic.Int64
	mu     sync.RWMutex
	videos map[int64]*videoRecord
}

// NewMemoryVideoRepository constructs an empty in-memory store. dataURLBase
// is the public prefix data URLs are derived from, e.g. "http://host/video".
func NewMemoryVideoRepository(dataURLBase string) *MemoryVideoRepository {
	return &MemoryVideoRepository{
		dataURLBase: dataURLBase,
		videos:      make(map[int64]*videoRecord),
	}
}

// List returns all stored videos in unspecified order.
func (r *MemoryVideoRepository) List(_ context.Context) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Video, 0, len(r.videos))
	for _, rec := range r.videos {
		out = append(out, snapshot(rec))
	}
	return out, nil
}

// Create assigns a fresh id and data URL, then persists the record.
func (r *MemoryVideoRepository) Create(_ context.Context, video models.Video) (models.Video, error) {
	video.ID = r.nextID.Add(1)
	video.DataURL = DataURL(r.dataURLBase, video.ID)
	video.State = models.StatePending
	video.Likes = 0
	video.UserLikes = nil

	rec := &videoRecord{video: video, likers: make(map[string]struct{})}

	r.mu.Lock()
	r.videos[video.ID] = rec
	out := snapshot(rec)
	r.mu.Unlock()

	return out, nil
}

// Get returns the record for id or ErrNotFound.
func (r *MemoryVideoRepository) Get(_ context.Context, id int64) (models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return snapshot(rec), nil
}

// Like records userID as a liker of the video. The membership check and the
// count update happen under one critical section.
func (r *MemoryVideoRepository) Like(_ context.Context, id int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	if _, liked := rec.likers[userID]; liked {
		return ErrAlreadyLiked
	}

	rec.likers[userID] = struct{}{}
	rec.video.Likes = int64(len(rec.likers))
	return nil
}

// Unlike removes userID from the video's likers.
func (r *MemoryVideoRepository) Unlike(_ context.Context, id int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	if _, liked := rec.likers[userID]; !liked {
		return ErrNotLiked
	}

	delete(rec.likers, userID)
	rec.video.Likes = int64(len(rec.likers))
	return nil
}

// FindByName returns all videos whose title matches exactly.
func (r *MemoryVideoRepository) FindByName(_ context.Context, title string) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Video, 0)
	for _, rec := range r.videos {
		if rec.video.Title == title {
			out = append(out, snapshot(rec))
		}
	}
	return out, nil
}

// FindByDurationLessThan returns all videos strictly shorter than duration.
func (r *MemoryVideoRepository) FindByDurationLessThan(_ context.Context, duration int64) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Video, 0)
	for _, rec := range r.videos {
		if rec.video.Duration < duration {
			out = append(out, snapshot(rec))
		}
	}
	return out, nil
}

// MarkReady transitions the video to the ready state once its payload is stored.
func (r *MemoryVideoRepository) MarkReady(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	rec.video.State = models.StateReady
	return nil
}

// snapshot copies a record so callers never alias store-internal state.
// Callers must hold at least the read lock.
func snapshot(rec *videoRecord) models.Video {
	v := rec.video
	if len(rec.likers) > 0 {
		v.UserLikes = make([]string, 0, len(rec.likers))
		for user := range rec.likers {
			v.UserLikes = append(v.UserLikes, user)
		}
		sort.Strings(v.UserLikes)
	}
	return v
}

// MemoryUserRepository backs the auth handlers when no database is configured.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

// NewMemoryUserRepository constructs an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byEmail: make(map[string]models.User)}
}

// Create persists a new user record, rejecting duplicate emails.
func (r *MemoryUserRepository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return ErrConflict
	}
	r.byEmail[user.Email] = user
	return nil
}

// FindByEmail fetches a user by email address.
func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

var _ VideoRepository = (*MemoryVideoRepository)(nil)
var _ UserRepository = (*MemoryUserRepository)(nil)
