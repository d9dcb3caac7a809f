package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// OpenAIClient implements Client for OpenAI and OpenAI-compatible models
// (Azure, local/self-hosted endpoints reachable via BaseURL).
type OpenAIClient struct {
	id        string
	chatModel model.ToolCallingChatModel
	models    []types.Model
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	UseAzure   bool
	APIVersion string
}

// NewOpenAIClient constructs a Client backed by eino's openai adapter.
func NewOpenAIClient(ctx context.Context, cfg *OpenAIConfig) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.UseAzure {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY not set")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = os.Getenv("OPENAI_MODEL_ID")
	}
	if modelID == "" {
		modelID = "gpt-4o"
	}

	occ := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	if cfg.UseAzure {
		occ.ByAzure = true
		if cfg.APIVersion != "" {
			occ.APIVersion = cfg.APIVersion
		} else {
			occ.APIVersion = "2024-02-15-preview"
		}
	}

	chatModel, err := openai.NewChatModel(ctx, occ)
	if err != nil {
		return nil, fmt.Errorf("llm: create openai model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "openai"
	}

	return &OpenAIClient{id: id, chatModel: chatModel, models: openAIModels()}, nil
}

func (c *OpenAIClient) ID() string            { return c.id }
func (c *OpenAIClient) Name() string          { return "OpenAI" }
func (c *OpenAIClient) Models() []types.Model { return c.models }

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (<-chan Delta, func() Outcome) {
	chatModel := c.chatModel
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(toEinoTools(req.Tools))
		if err != nil {
			return failedStream(&StreamError{Kind: StreamErrProvider, ProviderKind: ProviderErrUnknown, Message: err.Error()})
		}
	}

	opts := []model.Option{openai.WithMaxCompletionTokens(req.MaxTokens)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}

	reader, err := chatModel.Stream(ctx, toEinoMessages(req.SystemPrompt, req.Messages), opts...)
	if err != nil {
		return failedStream(classifyStreamError("openai", err))
	}
	return runStream(ctx, "openai", reader)
}

func openAIModels() []types.Model {
	return []types.Model{
		{
			ID: "gpt-5", Name: "GPT-5", ProviderID: "openai",
			ContextLength: 272000, MaxOutputTokens: 128000,
			SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
			InputPrice: 1.25, OutputPrice: 10.0,
		},
		{
			ID: "gpt-5-mini", Name: "GPT-5 Mini", ProviderID: "openai",
			ContextLength: 272000, MaxOutputTokens: 128000,
			SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
			InputPrice: 0.25, OutputPrice: 2.0,
		},
		{
			ID: "gpt-4o", Name: "GPT-4o", ProviderID: "openai",
			ContextLength: 128000, MaxOutputTokens: 16384,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 2.5, OutputPrice: 10.0,
		},
		{
			ID: "gpt-4o-mini", Name: "GPT-4o Mini", ProviderID: "openai",
			ContextLength: 128000, MaxOutputTokens: 16384,
			SupportsTools: true, SupportsVision: true,
			InputPrice: 0.15, OutputPrice: 0.6,
		},
		{
			ID: "o1", Name: "O1", ProviderID: "openai",
			ContextLength: 200000, MaxOutputTokens: 100000,
			SupportsTools: true, SupportsReasoning: true,
			InputPrice: 15.0, OutputPrice: 60.0,
		},
	}
}
