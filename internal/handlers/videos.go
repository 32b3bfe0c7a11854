package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vidvault/backend/internal/logging"
	"github.com/vidvault/backend/internal/models"
	"github.com/vidvault/backend/internal/repositories"
)

// VideoHandler provides the video metadata, upload, like and search endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Blobs    BlobSink
	Mirror   BlobMirror
	Sessions SessionManager
	Limiter  RateLimiter
}

type createVideoRequest struct {
	Title       string `json:"title"`
	Duration    int64  `json:"duration"`
	ContentType string `json:"contentType"`
}

// List handles GET /video.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "list videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos)
}

// Create handles POST /video. The id, data URL and state are assigned
// server-side; anything the client supplies for them is ignored.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid create video payload", "error", err)
		respondStatus(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respondStatus(ctx, w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Duration < 0 {
		respondStatus(ctx, w, http.StatusBadRequest, "duration must not be negative")
		return
	}

	video, err := h.Videos.Create(ctx, models.Video{
		Title:       req.Title,
		Duration:    req.Duration,
		ContentType: req.ContentType,
	})
	if err != nil {
		logging.FromContext(ctx).Error("create video", "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "create video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, video)
}

// Get handles GET /video/{id}. Absent ids produce a 404 with an empty body.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.videoID(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondStatus(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("get video", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "get video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, video)
}

// UploadData handles POST /video/{id}/data. The multipart field "data"
// carries the payload; the video must already exist. On success the video
// transitions to READY and the state string is returned.
func (h VideoHandler) UploadData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "upload") {
		respondStatus(ctx, w, http.StatusTooManyRequests, "upload rate limited")
		return
	}

	id, ok := h.videoID(w, r)
	if !ok {
		return
	}

	if _, err := h.Videos.Get(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondStatus(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("get video for upload", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "get video")
		return
	}

	file, _, err := r.FormFile("data")
	if err != nil {
		logging.FromContext(ctx).Warn("missing multipart data field", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusBadRequest, "multipart field data is required")
		return
	}
	defer file.Close()

	ctx, span := logging.StartSpan(ctx, "store video data")
	key := blobKey(id)
	if _, err := h.Blobs.Save(ctx, key, file); err != nil {
		span.End()
		logging.FromContext(ctx).Error("store video data", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "store video data")
		return
	}
	span.End()

	if err := h.Videos.MarkReady(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondStatus(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("mark video ready", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "mark video ready")
		return
	}

	if h.Mirror != nil {
		if err := h.Mirror.Enqueue(ctx, key); err != nil {
			// Replication is best-effort; the local copy is authoritative.
			logging.FromContext(ctx).Warn("enqueue blob mirror", "id", id, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, models.StateReady)
}

// Like handles POST /video/{id}/like. The liker identity comes from the
// caller's session.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.applyLike(w, r, "like", h.Videos.Like)
}

// Unlike handles POST /video/{id}/unlike.
func (h VideoHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.applyLike(w, r, "unlike", h.Videos.Unlike)
}

func (h VideoHandler) applyLike(w http.ResponseWriter, r *http.Request, scope string, op func(ctx context.Context, id int64, userID string) error) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, scope) {
		respondStatus(ctx, w, http.StatusTooManyRequests, scope+" rate limited")
		return
	}

	id, ok := h.videoID(w, r)
	if !ok {
		return
	}

	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := op(ctx, id, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondStatus(ctx, w, http.StatusNotFound, "video not found")
		case errors.Is(err, repositories.ErrAlreadyLiked), errors.Is(err, repositories.ErrNotLiked):
			respondStatus(ctx, w, http.StatusBadRequest, err.Error())
		default:
			logging.FromContext(ctx).Error(scope+" video", "id", id, "userId", userID, "error", err)
			respondStatus(ctx, w, http.StatusInternalServerError, scope+" video")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// LikedBy handles GET /video/{id}/likedby.
func (h VideoHandler) LikedBy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.videoID(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondStatus(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("get video likers", "id", id, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "get video likers")
		return
	}

	likers := video.UserLikes
	if likers == nil {
		likers = []string{}
	}
	respondJSON(ctx, w, http.StatusOK, likers)
}

// FindByName handles GET /video/search/findByName?title=.
func (h VideoHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title := r.URL.Query().Get("title")
	videos, err := h.Videos.FindByName(ctx, title)
	if err != nil {
		logging.FromContext(ctx).Error("find videos by name", "title", title, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "find videos by name")
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos)
}

// FindByDurationLessThan handles GET /video/search/findByDurationLessThan?duration=.
func (h VideoHandler) FindByDurationLessThan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	duration, err := strconv.ParseInt(r.URL.Query().Get("duration"), 10, 64)
	if err != nil {
		respondStatus(ctx, w, http.StatusBadRequest, "duration must be an integer")
		return
	}

	videos, err := h.Videos.FindByDurationLessThan(ctx, duration)
	if err != nil {
		logging.FromContext(ctx).Error("find videos by duration", "duration", duration, "error", err)
		respondStatus(ctx, w, http.StatusInternalServerError, "find videos by duration")
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos)
}

// videoID parses the {id} path segment. A non-numeric id can never name a
// stored video, so it reports 404 rather than 400.
func (h VideoHandler) videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondStatus(ctx, w, http.StatusNotFound, "invalid video id")
		return 0, false
	}
	return id, true
}

// currentUser resolves the caller's identity from the bearer token.
func (h VideoHandler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	if h.Sessions == nil {
		logging.FromContext(ctx).Error("session manager unavailable")
		respondStatus(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return "", false
	}

	token := bearerToken(r)
	if token == "" {
		respondStatus(ctx, w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}

	userID, err := h.Sessions.Identify(ctx, token)
	if err != nil {
		logging.FromContext(ctx).Warn("identify session", "error", err)
		respondStatus(ctx, w, http.StatusUnauthorized, "invalid session")
		return "", false
	}

	return userID, true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func blobKey(id int64) string {
	return fmt.Sprintf("videos/%d/data", id)
}
