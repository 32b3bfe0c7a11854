package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/vidvault/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the token has expired and cannot be used.
	ErrSessionExpired = errors.New("session expired")
)

// Session kinds. Access tokens authenticate individual requests, refresh
// tokens mint replacement pairs.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Session represents a token issued to a user.
type Session struct {
	Token     string
	UserID    string
	Kind      string
	ExpiresAt time.Time
}

// SessionStore persists issued tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Manager manages the lifecycle of issued session tokens backed by a
// persistent store. It is the source of the user identity attached to
// like and unlike operations.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager that issues access and refresh tokens with
// the provided TTLs.
func NewManager(accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new pair of access and refresh tokens for the provided user.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, Session{
		Token:     accessToken,
		UserID:    userID,
		Kind:      KindAccess,
		ExpiresAt: tokens.AccessExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.Save(ctx, Session{
		Token:     refreshToken,
		UserID:    userID,
		Kind:      KindRefresh,
		ExpiresAt: tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Identify resolves an access token to the user it was issued to.
func (m *Manager) Identify(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if session.Kind != KindAccess {
		return "", ErrSessionNotFound
	}
	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, accessToken)
		return "", ErrSessionExpired
	}

	return session.UserID, nil
}

// Refresh exchanges a refresh token for a new session token pair.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if session.Kind != KindRefresh {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.SessionTokens{}, ErrSessionExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.UserID)
}

// Revoke removes the provided token from the active session store.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = m.store.Delete(ctx, token)
}

// WithNowFunc overrides the time source. Useful for tests.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.now = now
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
