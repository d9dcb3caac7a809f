package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// ArkClient implements Client for Volcengine ARK models. Ark's model
// identifier is an account-specific endpoint id rather than a shared
// public model name, so Models() reports a single synthetic entry for
// whichever endpoint this client was configured against.
type ArkClient struct {
	chatModel model.ToolCallingChatModel
	models    []types.Model
}

// ArkConfig configures an ArkClient.
type ArkConfig struct {
	APIKey    string
	BaseURL   string
	Model     string // endpoint id on the ARK platform
	MaxTokens int
}

// NewArkClient constructs a Client backed by eino's ark adapter.
func NewArkClient(ctx context.Context, cfg *ArkConfig) (*ArkClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: ARK_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}
	if modelID == "" {
		return nil, fmt.Errorf("llm: ARK_MODEL_ID not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ARK_BASE_URL")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	ac := &ark.ChatModelConfig{APIKey: apiKey, Model: modelID, MaxTokens: &maxTokens}
	if baseURL != "" {
		ac.BaseURL = baseURL
	}

	chatModel, err := ark.NewChatModel(ctx, ac)
	if err != nil {
		return nil, fmt.Errorf("llm: create ark model: %w", err)
	}

	return &ArkClient{chatModel: chatModel, models: arkModels(modelID)}, nil
}

func (c *ArkClient) ID() string            { return "ark" }
func (c *ArkClient) Name() string          { return "ARK" }
func (c *ArkClient) Models() []types.Model { return c.models }

// Stream implements Client.
func (c *ArkClient) Stream(ctx context.Context, req Request) (<-chan Delta, func() Outcome) {
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
		return failedStream(classifyStreamError("ark", err))
	}
	return runStream(ctx, "ark", reader)
}

func arkModels(endpointID string) []types.Model {
	return []types.Model{
		{
			ID: endpointID, Name: "ARK Model", ProviderID: "ark",
			ContextLength: 128000, MaxOutputTokens: 4096,
			SupportsTools: true, SupportsVision: true,
		},
	}
}
