package repositories

import (
	"context"
	"fmt"

	"github.com/vidvault/backend/internal/models"
)

// VideoRepository exposes data access for video metadata and like state.
//
// Create assigns the identifier and the derived data URL; callers never
// supply either. Like and Unlike enforce the idempotency contract: a
// duplicate like reports ErrAlreadyLiked, an unlike without a prior like
// reports ErrNotLiked, and in both cases the stored record is unchanged.
type VideoRepository interface {
	List(ctx context.Context) ([]models.Video, error)
	Create(ctx context.Context, video models.Video) (models.Video, error)
	Get(ctx context.Context, id int64) (models.Video, error)
	Like(ctx context.Context, id int64, userID string) error
	Unlike(ctx context.Context, id int64, userID string) error
	FindByName(ctx context.Context, title string) ([]models.Video, error)
	FindByDurationLessThan(ctx context.Context, duration int64) ([]models.Video, error)
	MarkReady(ctx context.Context, id int64) error
}

// DataURL derives the location a video's binary payload is served from.
func DataURL(base string, id int64) string {
	return fmt.Sprintf("%s/%d/data", base, id)
}
