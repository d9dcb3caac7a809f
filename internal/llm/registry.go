package llm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BrendanGraham14/steer-sub008/internal/auth"
	"github.com/BrendanGraham14/steer-sub008/internal/config"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Registry holds every configured Client, keyed by provider id.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	config  *types.Config
}

// NewRegistry creates an empty Registry. config is consulted by
// DefaultModel to honor an explicit "provider/model" override.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{clients: make(map[string]Client), config: config}
}

// Register adds or replaces a Client under its own ID().
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c
}

// Get retrieves a Client by provider id.
func (r *Registry) Get(providerID string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[providerID]
	if !ok {
		return nil, fmt.Errorf("llm: provider not found: %s", providerID)
	}
	return c, nil
}

// List returns every registered Client.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// GetModel retrieves a specific model from a provider's catalog.
func (r *Registry) GetModel(providerID, modelID string) (*types.Model, error) {
	c, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}
	for _, m := range c.Models() {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("llm: model not found: %s/%s", providerID, modelID)
}

// AllModels returns every model from every registered provider, ordered
// by modelPriority descending so the highest-quality model sorts first.
func (r *Registry) AllModels() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var models []types.Model
	for _, c := range r.clients {
		models = append(models, c.Models()...)
	}
	sort.Slice(models, func(i, j int) bool {
		return modelPriority(models[i].ID) > modelPriority(models[j].ID)
	})
	return models
}

// DefaultModel returns the model to use absent an explicit per-operation
// choice: the config's Model override if set, else Claude Sonnet if
// registered, else the highest-priority model of whatever is registered.
func (r *Registry) DefaultModel() (*types.Model, error) {
	if r.config != nil && r.config.Model != "" {
		providerID, modelID := ParseModelString(r.config.Model)
		return r.GetModel(providerID, modelID)
	}
	if m, err := r.GetModel("anthropic", "claude-sonnet-4-20250514"); err == nil {
		return m, nil
	}
	models := r.AllModels()
	if len(models) == 0 {
		return nil, fmt.Errorf("llm: no models available")
	}
	return &models[0], nil
}

// ParseModelString splits a "provider/model" string. A string with no
// slash is returned as the model id alone, providerID empty.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

func modelPriority(modelID string) int {
	switch {
	case strings.Contains(modelID, "gpt-5"):
		return 100
	case strings.Contains(modelID, "claude-sonnet-4"):
		return 90
	case strings.Contains(modelID, "claude-opus"):
		return 85
	case strings.Contains(modelID, "gpt-4o"):
		return 80
	case strings.Contains(modelID, "claude-3-5"):
		return 75
	default:
		return 50
	}
}

// InitializeClients builds and registers a Client for every enabled entry
// in config.Provider, inferring provider type from the config key name
// (anthropic/claude, openai, ark), then auto-registers anthropic/openai
// from ANTHROPIC_API_KEY/OPENAI_API_KEY when not already configured.
// Construction failures are skipped rather than aborting the whole
// registry, so one misconfigured provider doesn't take down every other.
func InitializeClients(ctx context.Context, cfg *types.Config) (*Registry, error) {
	registry := NewRegistry(cfg)
	configured := make(map[string]bool)
	store := auth.NewStore(config.GetPaths().AuthPath())

	for name, pcfg := range cfg.Provider {
		if pcfg.Disable {
			continue
		}
		configured[name] = true
		apiKey, baseURL := providerCredentials(pcfg, store, name)

		client, err := buildClient(ctx, name, apiKey, baseURL, pcfg.Model)
		if err != nil || client == nil {
			continue
		}
		registry.Register(client)
	}

	if !configured["anthropic"] {
		if apiKey := storedOrEnvCredential(store, "anthropic", "ANTHROPIC_API_KEY"); apiKey != "" {
			if c, err := NewAnthropicClient(ctx, &AnthropicConfig{ID: "anthropic", APIKey: apiKey, MaxTokens: 8192}); err == nil {
				registry.Register(c)
			}
		}
	}
	if !configured["openai"] {
		if apiKey := storedOrEnvCredential(store, "openai", "OPENAI_API_KEY"); apiKey != "" {
			if c, err := NewOpenAIClient(ctx, &OpenAIConfig{ID: "openai", APIKey: apiKey, MaxTokens: 4096}); err == nil {
				registry.Register(c)
			}
		}
	}
	if !configured["ark"] {
		if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
			if c, err := NewArkClient(ctx, &ArkConfig{APIKey: apiKey, MaxTokens: 4096}); err == nil {
				registry.Register(c)
			}
		}
	}

	return registry, nil
}

// storedOrEnvCredential prefers a logged-in credential (API key or,
// for OAuth providers, an unexpired access token) from auth.Store over
// the provider's plain environment variable, the same precedence
// config.Load already gives an explicit config entry over env vars.
func storedOrEnvCredential(store *auth.Store, provider, envVar string) string {
	if cred, ok := store.Get(provider); ok && !cred.Expired() {
		if cred.AccessToken != "" {
			return cred.AccessToken
		}
		if cred.APIKey != "" {
			return cred.APIKey
		}
	}
	return os.Getenv(envVar)
}

func buildClient(ctx context.Context, name, apiKey, baseURL, model string) (Client, error) {
	switch name {
	case "anthropic", "claude":
		if apiKey == "" {
			return nil, nil
		}
		return NewAnthropicClient(ctx, &AnthropicConfig{ID: name, APIKey: apiKey, BaseURL: baseURL, Model: model, MaxTokens: 8192})
	case "openai":
		if apiKey == "" && baseURL == "" {
			return nil, nil
		}
		return NewOpenAIClient(ctx, &OpenAIConfig{ID: name, APIKey: apiKey, BaseURL: baseURL, Model: model, MaxTokens: 4096})
	case "ark":
		if apiKey == "" {
			return nil, nil
		}
		return NewArkClient(ctx, &ArkConfig{APIKey: apiKey, BaseURL: baseURL, Model: model, MaxTokens: 4096})
	default:
		return nil, nil
	}
}

func providerCredentials(cfg types.ProviderConfig, store *auth.Store, providerName string) (apiKey, baseURL string) {
	apiKey, baseURL = cfg.APIKey, cfg.BaseURL
	if cfg.Options != nil {
		if cfg.Options.APIKey != "" {
			apiKey = cfg.Options.APIKey
		}
		if cfg.Options.BaseURL != "" {
			baseURL = cfg.Options.BaseURL
		}
	}
	if apiKey == "" {
		if cred, ok := store.Get(providerName); ok && !cred.Expired() {
			if cred.AccessToken != "" {
				apiKey = cred.AccessToken
			} else {
				apiKey = cred.APIKey
			}
		}
	}
	return apiKey, baseURL
}
