package security

import (
	"testing"
	"time"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)
	userID := domain.NewID()

	token := store.Create(userID)
	if token == "" {
		t.Fatal("empty token")
	}

	got, ok := store.Lookup(token)
	if !ok {
		t.Fatal("fresh session not found")
	}
	if got != userID {
		t.Errorf("user id = %s, want %s", got, userID)
	}

	store.Revoke(token)
	if _, ok := store.Lookup(token); ok {
		t.Error("revoked session still resolves")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(-time.Minute) // already expired on creation
	token := store.Create(domain.NewID())

	if _, ok := store.Lookup(token); ok {
		t.Error("expired session still resolves")
	}
}

func TestSessionUnknownToken(t *testing.T) {
	store := NewSessionStore(time.Hour)
	if _, ok := store.Lookup("nope"); ok {
		t.Error("unknown token resolved")
	}
}
