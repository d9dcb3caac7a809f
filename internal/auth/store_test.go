package auth

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStoreAPIKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := NewStore(path)

	if _, ok := store.Get("anthropic"); ok {
		t.Fatal("expected no credential before any write")
	}

	if err := store.SetAPIKey("anthropic", "sk-test-123"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	cred, ok := store.Get("anthropic")
	if !ok {
		t.Fatal("expected credential after SetAPIKey")
	}
	if cred.APIKey != "sk-test-123" {
		t.Errorf("expected stored API key, got %q", cred.APIKey)
	}
	if cred.Expired() {
		t.Error("a plain API key should never report expired")
	}
}

func TestStoreOAuthTokensAndExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := NewStore(path)

	expired := Credential{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour)}
	if err := store.SetOAuthTokens("anthropic", expired); err != nil {
		t.Fatalf("SetOAuthTokens failed: %v", err)
	}

	cred, ok := store.Get("anthropic")
	if !ok {
		t.Fatal("expected credential after SetOAuthTokens")
	}
	if !cred.Expired() {
		t.Error("expected credential with past expiry to report expired")
	}

	fresh := Credential{AccessToken: "at2", Expiry: time.Now().Add(time.Hour)}
	if err := store.SetOAuthTokens("anthropic", fresh); err != nil {
		t.Fatalf("SetOAuthTokens failed: %v", err)
	}
	cred, _ = store.Get("anthropic")
	if cred.Expired() {
		t.Error("expected credential with future expiry to not report expired")
	}
}

func TestStoreDeleteAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := NewStore(path)

	store.SetAPIKey("anthropic", "key-a")
	store.SetAPIKey("openai", "key-b")

	creds, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("expected 2 stored credentials, got %d", len(creds))
	}

	if err := store.Delete("anthropic"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get("anthropic"); ok {
		t.Error("expected anthropic credential to be gone after Delete")
	}
	if _, ok := store.Get("openai"); !ok {
		t.Error("expected openai credential to survive deleting anthropic")
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")

	if err := NewStore(path).SetAPIKey("anthropic", "key-a"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	reopened := NewStore(path)
	cred, ok := reopened.Get("anthropic")
	if !ok || cred.APIKey != "key-a" {
		t.Error("expected credential written by one Store instance to be visible from a fresh one")
	}
}
