package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerIssueAndIdentify(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, 24*time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", tokens)
	}
	if tokens.AccessToken == tokens.RefreshToken {
		t.Fatal("expected distinct access and refresh tokens")
	}
	if !store.Has(tokens.AccessToken) || !store.Has(tokens.RefreshToken) {
		t.Fatal("expected both tokens persisted")
	}

	userID, err := manager.Identify(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestManagerIssueRequiresUser(t *testing.T) {
	manager := NewManager(time.Hour, 24*time.Hour, NewInMemorySessionStore())

	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerIdentifyRejectsRefreshToken(t *testing.T) {
	manager := NewManager(time.Hour, 24*time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Identify(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound got %v", err)
	}
}

func TestManagerIdentifyExpiredToken(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, 24*time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.WithNowFunc(func() time.Time { return time.Now().UTC().Add(2 * time.Hour) })

	if _, err := manager.Identify(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired got %v", err)
	}
	if store.Has(tokens.AccessToken) {
		t.Fatal("expected expired access token removed from store")
	}
}

func TestManagerRefreshRotatesTokens(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, 24*time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected the old refresh token to be consumed")
	}

	userID, err := manager.Identify(context.Background(), rotated.AccessToken)
	if err != nil {
		t.Fatalf("identify rotated token: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestManagerRefreshExpiredToken(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, 24*time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.WithNowFunc(func() time.Time { return time.Now().UTC().Add(48 * time.Hour) })

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired got %v", err)
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected expired refresh token removed from store")
	}
}

func TestManagerRefreshRejectsAccessToken(t *testing.T) {
	manager := NewManager(time.Hour, 24*time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, 24*time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.Revoke(context.Background(), tokens.AccessToken)

	if _, err := manager.Identify(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound got %v", err)
	}
}
