package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credential is one provider's stored credential: either a plain API
// key, or an OAuth token set, whichever a login actually produced.
type Credential struct {
	APIKey       string    `json:"apiKey,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Expired reports whether an OAuth access token is past its expiry.
// API keys (no Expiry set) never expire this way.
func (c Credential) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

// fileFormat is the on-disk shape of the auth file: a provider-keyed
// map, kept compatible with the plain API-key-only auth.json shape a
// simpler login flow would produce.
type fileFormat struct {
	Providers map[string]Credential `json:"providers"`
}

// Store persists Credentials to a JSON file at path (ordinarily
// config.GetPaths().AuthPath()), guarding concurrent access with a
// mutex since both CLI login commands and LLM client construction read
// and write it.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore builds a Store backed by path. The file is created lazily
// on first write; reads against a missing file return an empty set.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the stored credential for provider, if any.
func (s *Store) Get(provider string) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return Credential{}, false
	}
	c, ok := f.Providers[provider]
	return c, ok
}

// SetAPIKey stores a plain API key for provider, the path a plain
// `auth login <provider>` command drives for providers with no OAuth flow.
func (s *Store) SetAPIKey(provider, apiKey string) error {
	return s.update(provider, func(c *Credential) { *c = Credential{APIKey: apiKey} })
}

// SetOAuthTokens stores an OAuth token set for provider, overwriting
// any previous credential (API key or OAuth) for that provider.
func (s *Store) SetOAuthTokens(provider string, cred Credential) error {
	return s.update(provider, func(c *Credential) { *c = cred })
}

// Delete removes provider's stored credential.
func (s *Store) Delete(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	delete(f.Providers, provider)
	return s.save(f)
}

// List returns every provider with a stored credential.
func (s *Store) List() (map[string]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Providers, nil
}

func (s *Store) update(provider string, fn func(c *Credential)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if f.Providers == nil {
		f.Providers = make(map[string]Credential)
	}
	c := f.Providers[provider]
	fn(&c)
	f.Providers[provider] = c
	return s.save(f)
}

func (s *Store) load() (fileFormat, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return fileFormat{Providers: make(map[string]Credential)}, nil
	}
	if err != nil {
		return fileFormat{}, err
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fileFormat{}, err
	}
	if f.Providers == nil {
		f.Providers = make(map[string]Credential)
	}
	return f, nil
}

func (s *Store) save(f fileFormat) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
