package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/phrazzld/reelgen-api/internal/config"
	"github.com/phrazzld/reelgen-api/internal/provider"
)

func newSDKClient(apiKey, baseURL string) openaisdk.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openaisdk.NewClient(opts...)
}

// ChatClient implements provider.ChatCompleter.
type ChatClient struct {
	client openaisdk.Client
	logger *slog.Logger
}

// NewChatClient creates a ChatClient from the chat provider configuration.
func NewChatClient(cfg config.ChatProviderConfig, logger *slog.Logger) (*ChatClient, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("openai api key cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &ChatClient{
		client: newSDKClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		logger: logger.With(slog.String("component", "openai_chat")),
	}, nil
}

// Complete sends one chat-completion request and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, req provider.ChatRequest) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(m.Content))
		case provider.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		case provider.RoleUser:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		default:
			return "", fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openaisdk.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}
	c.logger.DebugContext(ctx, "chat completion received",
		slog.String("model", resp.Model),
		slog.Int64("total_tokens", resp.Usage.TotalTokens))
	return firstChoice(resp)
}

// VisionClient implements provider.VisionAnalyzer with image content parts.
type VisionClient struct {
	client    openaisdk.Client
	model     string
	detail    string
	maxTokens int
}

// NewVisionClient creates a VisionClient from the vision provider configuration.
func NewVisionClient(cfg config.VisionProviderConfig) (*VisionClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("vision api key cannot be empty")
	}
	if cfg.Model == "" {
		return nil, errors.New("vision model cannot be empty")
	}
	return &VisionClient{
		client:    newSDKClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		detail:    cfg.Detail,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Analyze asks the model to describe one image.
func (c *VisionClient) Analyze(ctx context.Context, req provider.VisionRequest) (string, error) {
	parts := []openaisdk.ChatCompletionContentPartUnionParam{
		openaisdk.TextContentPart(req.Prompt),
		openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
			URL:    req.ImageURL,
			Detail: c.detail,
		}),
	}
	params := openaisdk.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(parts)},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}
	return firstChoice(resp)
}
