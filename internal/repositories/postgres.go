package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidvault/backend/internal/db"
	"github.com/vidvault/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
// Like and unlike run inside a transaction so the membership row and the
// counter always move together; concurrent duplicate likes are resolved by
// the primary key on video_likes rather than a check-then-act in Go.
type PostgresVideoRepository struct {
	pool        db.Pool
	dataURLBase string
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool, dataURLBase string) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool, dataURLBase: dataURLBase}
}

const videoColumns = `id, title, duration, content_type, data_url, state, likes`

// List returns all stored videos.
func (r *PostgresVideoRepository) List(ctx context.Context) ([]models.Video, error) {
	return r.listWhere(ctx, ``)
}

// Create persists a new video, assigning its id and data URL server-side.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("begin create video: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
        INSERT INTO videos (title, duration, content_type, data_url, state, likes)
        VALUES ($1, $2, $3, '', $4, 0)
        RETURNING id
    `, video.Title, video.Duration, video.ContentType, models.StatePending)

	var id int64
	if err := row.Scan(&id); err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}

	dataURL := DataURL(r.dataURLBase, id)
	if _, err := tx.Exec(ctx, `UPDATE videos SET data_url = $2 WHERE id = $1`, id, dataURL); err != nil {
		return models.Video{}, fmt.Errorf("set video data url: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
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
func (r *PostgresVideoRepository) Get(ctx context.Context, id int64) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)

	var v models.Video
	if err := row.Scan(&v.ID, &v.Title, &v.Duration, &v.ContentType, &v.DataURL, &v.State, &v.Likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT user_id FROM video_likes WHERE video_id = $1 ORDER BY user_id`, id)
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
func (r *PostgresVideoRepository) Like(ctx context.Context, id int64, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin like: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        INSERT INTO video_likes (video_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (video_id, user_id) DO NOTHING
    `, id, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert video like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyLiked
	}

	if _, err := tx.Exec(ctx, `UPDATE videos SET likes = likes + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment video likes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit like: %w", err)
	}
	return nil
}

// Unlike removes a like for userID from the video identified by id.
func (r *PostgresVideoRepository) Unlike(ctx context.Context, id int64, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unlike: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        DELETE FROM video_likes WHERE video_id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		return fmt.Errorf("delete video like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		row := tx.QueryRow(ctx, `SELECT 1 FROM videos WHERE id = $1`, id)
		var one int
		if err := row.Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("check video exists: %w", err)
		}
		return ErrNotLiked
	}

	if _, err := tx.Exec(ctx, `UPDATE videos SET likes = likes - 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("decrement video likes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit unlike: %w", err)
	}
	return nil
}

// FindByName returns all videos whose title matches exactly.
func (r *PostgresVideoRepository) FindByName(ctx context.Context, title string) ([]models.Video, error) {
	return r.listWhere(ctx, `WHERE title = $1`, title)
}

// FindByDurationLessThan returns all videos strictly shorter than duration.
func (r *PostgresVideoRepository) FindByDurationLessThan(ctx context.Context, duration int64) ([]models.Video, error) {
	return r.listWhere(ctx, `WHERE duration < $1`, duration)
}

// MarkReady transitions a video to the ready state.
func (r *PostgresVideoRepository) MarkReady(ctx context.Context, id int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET state = $2 WHERE id = $1`, id, models.StateReady)
	if err != nil {
		return fmt.Errorf("update video state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// listWhere fetches videos matching the clause, then assembles liker sets in
// a second query rather than a join so row scanning stays flat.
func (r *PostgresVideoRepository) listWhere(ctx context.Context, where string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+videoColumns+` FROM videos `+where+` ORDER BY id`, args...)
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

	ids := make([]int64, 0, len(videos))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	likeRows, err := conn.Query(ctx, `
        SELECT video_id, user_id FROM video_likes
        WHERE video_id = ANY($1)
        ORDER BY video_id, user_id
    `, ids)
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

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ UserRepository = (*PostgresUserRepository)(nil)
