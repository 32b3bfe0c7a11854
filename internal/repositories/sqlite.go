package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vidvault/backend/internal/models"
)

// SQLiteVideoRepository persists videos to an embedded SQLite database,
// suitable for single-node deployments. SQLite serializes writers, and the
// like/unlike read-modify-write still runs in an explicit transaction so the
// membership row and the counter commit together.
type SQLiteVideoRepository struct {
	db          *sql.DB
	dataURLBase string
}

// NewSQLiteVideoRepository opens (or creates) the database at dbPath and
// ensures the schema exists.
func NewSQLiteVideoRepository(dbPath, dataURLBase string) (*SQLiteVideoRepository, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS videos (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        duration INTEGER NOT NULL,
        content_type TEXT NOT NULL,
        data_url TEXT NOT NULL,
        state TEXT NOT NULL,
        likes INTEGER NOT NULL DEFAULT 0
    );
    CREATE TABLE IF NOT EXISTS video_likes (
        video_id INTEGER NOT NULL,
        user_id TEXT NOT NULL,
        PRIMARY KEY (video_id, user_id)
    );`
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SQLiteVideoRepository{db: sqlDB, dataURLBase: dataURLBase}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteVideoRepository) Close() error {
	return r.db.Close()
}

// List returns all stored videos.
func (r *SQLiteVideoRepository) List(ctx context.Context) ([]models.Video, error) {
	return r.listWhere(ctx, ``)
}

// Create persists a new video, assigning its id and data URL server-side.
func (r *SQLiteVideoRepository) Create(ctx context.Context, video models.Video) (models.Video, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Video{}, fmt.Errorf("begin create video: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO videos (title, duration, content_type, data_url, state, likes)
        VALUES (?, ?, ?, '', ?, 0)
    `, video.Title, video.Duration, video.ContentType, models.StatePending)
	if err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Video{}, fmt.Errorf("read inserted video id: %w", err)
	}

	dataURL := DataURL(r.dataURLBase, id)
	if _, err := tx.ExecContext(ctx, `UPDATE videos SET data_url = ? WHERE id = ?`, dataURL, id); err != nil {
		return models.Video{}, fmt.Errorf("set video data url: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Video{}, fmt.Errorf("commit create video: %w", err)
	}

	video.ID = id
	video.DataURL = dataURL
	video.State = models.StatePending
	video.Likes = 0
	video.UserLikes = nil
	return video, nil
}

// Get returns the record for id or ErrNotFound.
func (r *SQLiteVideoRepository) Get(ctx context.Context, id int64) (models.Video, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, title, duration, content_type, data_url, state, likes
        FROM videos WHERE id = ?
    `, id)

	var v models.Video
	if err := row.Scan(&v.ID, &v.Title, &v.Duration, &v.ContentType, &v.DataURL, &v.State, &v.Likes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id FROM video_likes WHERE video_id = ? ORDER BY user_id
    `, id)
	if err != nil {
		return models.Video{}, fmt.Errorf("query video likers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return models.Video{}, fmt.Errorf("scan video liker: %w", err)
		}
		v.UserLikes = append(v.UserLikes, user)
	}
	if err := rows.Err(); err != nil {
		return models.Video{}, fmt.Errorf("iterate video likers: %w", err)
	}

	return v, nil
}

// Like records a like for userID on the video identified by id.
func (r *SQLiteVideoRepository) Like(ctx context.Context, id int64, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin like: %w", err)
	}
	defer tx.Rollback()

	if err := videoExistsTx(ctx, tx, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO video_likes (video_id, user_id) VALUES (?, ?)
    `, id, userID)
	if err != nil {
		return fmt.Errorf("insert video like: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("read like rows affected: %w", err)
	} else if n == 0 {
		return ErrAlreadyLiked
	}

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET likes = likes + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("increment video likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit like: %w", err)
	}
	return nil
}

// Unlike removes a like for userID from the video identified by id.
func (r *SQLiteVideoRepository) Unlike(ctx context.Context, id int64, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unlike: %w", err)
	}
	defer tx.Rollback()

	if err := videoExistsTx(ctx, tx, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
        DELETE FROM video_likes WHERE video_id = ? AND user_id = ?
    `, id, userID)
	if err != nil {
		return fmt.Errorf("delete video like: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("read unlike rows affected: %w", err)
	} else if n == 0 {
		return ErrNotLiked
	}

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET likes = likes - 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("decrement video likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unlike: %w", err)
	}
	return nil
}

// FindByName returns all videos whose title matches exactly.
func (r *SQLiteVideoRepository) FindByName(ctx context.Context, title string) ([]models.Video, error) {
	return r.listWhere(ctx, `WHERE title = ?`, title)
}

// FindByDurationLessThan returns all videos strictly shorter than duration.
func (r *SQLiteVideoRepository) FindByDurationLessThan(ctx context.Context, duration int64) ([]models.Video, error) {
	return r.listWhere(ctx, `WHERE duration < ?`, duration)
}

// MarkReady transitions a video to the ready state.
func (r *SQLiteVideoRepository) MarkReady(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE videos SET state = ? WHERE id = ?`, models.StateReady, id)
	if err != nil {
		return fmt.Errorf("update video state: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("read state rows affected: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteVideoRepository) listWhere(ctx context.Context, where string, args ...any) ([]models.Video, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, title, duration, content_type, data_url, state, likes
        FROM videos `+where+` ORDER BY id
    `, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.Title, &v.Duration, &v.ContentType, &v.DataURL, &v.State, &v.Likes); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		index[v.ID] = len(videos)
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	if len(videos) == 0 {
		return videos, nil
	}

	likeRows, err := r.db.QueryContext(ctx, `
        SELECT video_id, user_id FROM video_likes ORDER BY video_id, user_id
    `)
	if err != nil {
		return nil, fmt.Errorf("query video likers: %w", err)
	}
	defer likeRows.Close()

	for likeRows.Next() {
		var (
			videoID int64
			user    string
		)
		if err := likeRows.Scan(&videoID, &user); err != nil {
			return nil, fmt.Errorf("scan video liker: %w", err)
		}
		if i, ok := index[videoID]; ok {
			videos[i].UserLikes = append(videos[i].UserLikes, user)
		}
	}
	if err := likeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video likers: %w", err)
	}

	return videos, nil
}

func videoExistsTx(ctx context.Context, tx *sql.Tx, id int64) error {
	row := tx.QueryRowContext(ctx, `SELECT 1 FROM videos WHERE id = ?`, id)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check video exists: %w", err)
	}
	return nil
}

var _ VideoRepository = (*SQLiteVideoRepository)(nil)
