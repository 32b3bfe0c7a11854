package handlers

import (
	"context"
	"io"

	"github.com/vidvault/backend/internal/models"
)

// VideoStore captures the persistence operations required by the video handlers.
type VideoStore interface {
	List(ctx context.Context) ([]models.Video, error)
	Create(ctx context.Context, video models.Video) (models.Video, error)
	Get(ctx context.Context, id int64) (models.Video, error)
	Like(ctx context.Context, id int64, userID string) error
	Unlike(ctx context.Context, id int64, userID string) error
	FindByName(ctx context.Context, title string) ([]models.Video, error)
	FindByDurationLessThan(ctx context.Context, duration int64) ([]models.Video, error)
	MarkReady(ctx context.Context, id int64) error
}

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues and resolves authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Identify(ctx context.Context, accessToken string) (string, error)
}

// BlobSink accepts a video's binary payload keyed by a storage key.
type BlobSink interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
}

// BlobMirror schedules background replication of accepted payloads.
type BlobMirror interface {
	Enqueue(ctx context.Context, key string) error
}
