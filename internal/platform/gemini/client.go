package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reelgen-api/internal/config"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"google.golang.org/genai"
)

// ErrNoCandidates is returned when the response holds no usable candidate.
var ErrNoCandidates = errors.New("gemini returned no candidates")

// ChatClient implements provider.ChatCompleter using the genai client.
type ChatClient struct {
	client *genai.Client
	logger *slog.Logger
}

// NewChatClient creates a ChatClient for the Gemini API backend.
func NewChatClient(ctx context.Context, cfg config.ChatProviderConfig, logger *slog.Logger) (*ChatClient, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &ChatClient{
		client: client,
		logger: logger.With(slog.String("component", "gemini_chat")),
	}, nil
}

// Complete sends one generateContent request and returns the text of the
// first candidate.
func (c *ChatClient) Complete(ctx context.Context, req provider.ChatRequest) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem:
			genConfig.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case provider.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case provider.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		default:
			return "", fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return "", mapError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", retry.ErrUnprocessableInput, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
		return "", fmt.Errorf("%w: content blocked by safety filters", retry.ErrUnprocessableInput)
	}

	if resp.UsageMetadata != nil {
		c.logger.DebugContext(ctx, "gemini response received",
			slog.String("model", req.Model),
			slog.Int("total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}
	return resp.Text(), nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.NewStatusError(apiErr.Code, apiErr.Message, err)
	}
	return err
}
