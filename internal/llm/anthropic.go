package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// AnthropicClient implements Client for Anthropic Claude models.
type AnthropicClient struct {
	id        string
	chatModel model.ToolCallingChatModel
	models    []types.Model
}

// AnthropicConfig configures an AnthropicClient. Bedrock is supported
// alongside the direct API.
type AnthropicConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	Thinking *claude.Thinking

	UseBedrock bool
	Region     string
	Profile    string
}

// NewAnthropicClient constructs a Client backed by eino's claude adapter.
func NewAnthropicClient(ctx context.Context, cfg *AnthropicConfig) (*AnthropicClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" && !cfg.UseBedrock {
		return nil, fmt.Errorf("llm: ANTHROPIC_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}

	var chatModel model.ToolCallingChatModel
	var err error
	if cfg.UseBedrock {
		bedrockModel := "anthropic." + modelID + "-v1:0"
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			ByBedrock: true,
			Region:    cfg.Region,
			Profile:   cfg.Profile,
			Model:     bedrockModel,
			MaxTokens: cfg.MaxTokens,
			Thinking:  cfg.Thinking,
		})
	} else {
		cc := &claude.Config{
			APIKey:    apiKey,
			Model:     modelID,
			MaxTokens: cfg.MaxTokens,
			Thinking:  cfg.Thinking,
		}
		if cfg.BaseURL != "" {
			cc.BaseURL = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, cc)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: create claude model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "anthropic"
	}

	return &AnthropicClient{id: id, chatModel: chatModel, models: anthropicModels()}, nil
}

func (c *AnthropicClient) ID() string            { return c.id }
func (c *AnthropicClient) Name() string          { return "Anthropic" }
func (c *AnthropicClient) Models() []types.Model { return c.models }

// Stream implements Client.
func (c *AnthropicClient) Stream(ctx context.Context, req Request) (<-chan Delta, func() Outcome) {
	chatModel := c.chatModel
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(toEinoTools(req.Tools))
		if err != nil {
			return failedStream(&StreamError{Kind: StreamErrProvider, ProviderKind: ProviderErrUnknown, Message: err.Error()})
		}
	}

	reader, err := chatModel.Stream(ctx, toEinoMessages(req.SystemPrompt, req.Messages),
		model.WithMaxTokens(req.MaxTokens),
		model.WithTemperature(float32(req.Temperature)),
	)
	if err != nil {
		return failedStream(classifyStreamError("anthropic", err))
	}
	return runStream(ctx, "anthropic", reader)
}

func anthropicModels() []types.Model {
	return []types.Model{
		{
			ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 64000,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 3.0, OutputPrice: 15.0,
			Options: types.ModelOptions{PromptCaching: true, ExtendedOutput: true},
		},
		{
			ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 32000,
			SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
			InputPrice: 15.0, OutputPrice: 75.0,
			Options: types.ModelOptions{PromptCaching: true},
		},
		{
			ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 3.0, OutputPrice: 15.0,
			Options: types.ModelOptions{PromptCaching: true},
		},
		{
			ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 0.8, OutputPrice: 4.0,
		},
		{
			ID: "claude-haiku-4-5-20251001", Name: "Claude 4.5 Haiku", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 0.8, OutputPrice: 4.0,
		},
	}
}

// failedStream returns an already-closed delta channel paired with an
// Outcome func reporting err, for setup failures that occur before any
// streaming begins (tool binding, request construction).
func failedStream(err *StreamError) (<-chan Delta, func() Outcome) {
	out := make(chan Delta)
	close(out)
	return out, func() Outcome { return Outcome{Kind: OutcomeError, Error: err} }
}
