package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndValidateSession(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, expiresAt, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	userID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("expected valid session for user-1, got ok=%v user=%q", ok, userID)
	}
}

func TestCreateRequiresUserID(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, err := manager.Create(""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, ok, err := manager.Validate("deadbeef"); err != nil || ok {
		t.Fatalf("expected invalid session, got ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := manager.Validate(""); err != nil || ok {
		t.Fatalf("expected empty token to be invalid, got ok=%v err=%v", ok, err)
	}
}

func TestValidateExpiredSessionDeletes(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	hashed, err := hashSessionToken(token)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := store.Save(hashed, "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, _, ok, err := manager.Validate(token); err != nil || ok {
		t.Fatalf("expected expired session to be invalid, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := store.Get(hashed); ok {
		t.Fatalf("expected expired session to be deleted on validation")
	}
}

func TestRevokeSession(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := manager.Revoke(token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatalf("expected revoked session to be invalid")
	}
	if err := manager.Revoke(""); err != nil {
		t.Fatalf("revoking empty token should be a no-op, got %v", err)
	}
}

func TestStorePersistsOnlyHashedTokens(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, ok, _ := store.Get(token); ok {
		t.Fatalf("raw token must not be a valid store key")
	}
	hashed, err := hashSessionToken(token)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if _, ok, _ := store.Get(hashed); !ok {
		t.Fatalf("expected hashed token to be the store key")
	}
}

func TestPurgeExpiredRemovesOnlyStale(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	if err := store.Save("stale", "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save("fresh", "user-2", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if _, ok, _ := store.Get("stale"); ok {
		t.Fatalf("expected stale session to be purged")
	}
	if _, ok, _ := store.Get("fresh"); !ok {
		t.Fatalf("expected fresh session to survive purge")
	}
}

func TestWithTokenLength(t *testing.T) {
	manager := NewSessionManager(time.Hour, WithTokenLength(16))
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 16 random bytes hex encoded (32 chars), got %d", len(token))
	}
}

func TestTokenFactoryFailuresSurface(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	manager.tokenFactory = func(int) (string, error) {
		return "", errors.New("entropy exhausted")
	}
	if _, _, err := manager.Create("user-1"); err == nil {
		t.Fatalf("expected token factory error to surface")
	}
}
