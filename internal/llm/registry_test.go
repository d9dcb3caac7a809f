package llm

import (
	"testing"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func TestParseModelString(t *testing.T) {
	p, m := ParseModelString("anthropic/claude-sonnet-4-20250514")
	if p != "anthropic" || m != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected split: %q %q", p, m)
	}
	p, m = ParseModelString("gpt-4o")
	if p != "" || m != "gpt-4o" {
		t.Fatalf("unexpected split for bare model: %q %q", p, m)
	}
}

func TestRegistry_GetAndList(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&AnthropicClient{id: "anthropic", models: anthropicModels()})
	r.Register(&OpenAIClient{id: "openai", models: openAIModels()})

	c, err := r.Get("openai")
	if err != nil || c.ID() != "openai" {
		t.Fatalf("expected openai client, got %v err=%v", c, err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if len(r.List()) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(r.List()))
	}
}

func TestRegistry_GetModel(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&AnthropicClient{id: "anthropic", models: anthropicModels()})

	m, err := r.GetModel("anthropic", "claude-sonnet-4-20250514")
	if err != nil || m.ID != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected result: %+v err=%v", m, err)
	}
	if _, err := r.GetModel("anthropic", "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestRegistry_DefaultModel_ConfigOverride(t *testing.T) {
	r := NewRegistry(&types.Config{Model: "openai/gpt-4o"})
	r.Register(&OpenAIClient{id: "openai", models: openAIModels()})

	m, err := r.DefaultModel()
	if err != nil || m.ID != "gpt-4o" {
		t.Fatalf("unexpected default model: %+v err=%v", m, err)
	}
}

func TestRegistry_DefaultModel_FallsBackToSonnet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&AnthropicClient{id: "anthropic", models: anthropicModels()})
	r.Register(&OpenAIClient{id: "openai", models: openAIModels()})

	m, err := r.DefaultModel()
	if err != nil || m.ID != "claude-sonnet-4-20250514" {
		t.Fatalf("expected sonnet default, got %+v err=%v", m, err)
	}
}

func TestRegistry_DefaultModel_NoProviders(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.DefaultModel(); err == nil {
		t.Fatal("expected error when no providers are registered")
	}
}

func TestRegistry_AllModels_SortedByPriority(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&OpenAIClient{id: "openai", models: openAIModels()})
	r.Register(&AnthropicClient{id: "anthropic", models: anthropicModels()})

	models := r.AllModels()
	if len(models) == 0 {
		t.Fatal("expected models")
	}
	if models[0].ID != "gpt-5" {
		t.Fatalf("expected gpt-5 to sort first, got %q", models[0].ID)
	}
}
