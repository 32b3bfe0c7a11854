package models

import "time"

// Video describes a single video's metadata together with its like state.
// The binary payload itself lives in blob storage and is addressed through
// DataURL once the video reaches StateReady.
type Video struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Duration    int64    `json:"duration"`
	ContentType string   `json:"contentType"`
	DataURL     string   `json:"dataUrl"`
	State       string   `json:"state"`
	Likes       int64    `json:"likes"`
	UserLikes   []string `json:"userLikes,omitempty"`
}

const (
	// StatePending marks a video whose metadata exists but whose binary
	// payload has not been accepted yet.
	StatePending = "PENDING"
	// StateReady marks a video whose binary payload is fully stored.
	StateReady = "READY"
)

// User represents an account that can like videos.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
