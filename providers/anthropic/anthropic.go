package anthropic

import (
	"context"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
)

const (
	// Name is the registry key for this provider.
	Name = "anthropic"

	DefaultBaseURL   = "https://api.anthropic.com"
	APIVersion       = "2023-06-01"
	DefaultMaxTokens = 1024

	messagesPath = "/v1/messages"
)

// AnthropicProvider implements the Anthropic-specific functionality
type AnthropicProvider struct {
	cfg providers.Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg providers.Config) *AnthropicProvider {
	return &AnthropicProvider{cfg: cfg.Normalize(DefaultBaseURL)}
}

type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	Messages  []models.ChatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateCompletion sends input as a single user message to the Messages API.
func (p *AnthropicProvider) GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error) {
	body, err := wire.Marshal(messagesRequest{
		Model:     modelName,
		MaxTokens: DefaultMaxTokens,
		Messages:  []models.ChatMessage{{Role: "user", Content: input}},
	})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, &transport.Request{
		BaseURL: p.cfg.BaseURL,
		Path:    messagesPath,
		Body:    body,
		Headers: map[string]string{
			"x-api-key":         credential,
			"anthropic-version": APIVersion,
			"content-type":      "application/json",
		},
		Timeout: p.cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	var result messagesResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		return nil, wire.MissingField(Name, "content")
	}

	response := &models.CompletionResponse{
		Text:     result.Content[0].Text,
		Provider: Name,
		Model:    modelName,
	}
	if result.Usage != nil {
		response.Usage = models.NewUsage(result.Usage.InputTokens, result.Usage.OutputTokens, 0)
	}
	return response, nil
}

// GenerateEmbedding always fails: Anthropic has no embedding endpoint.
// No request is made.
func (p *AnthropicProvider) GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error) {
	return nil, common.UnsupportedError(Name, "Embeddings not supported for Anthropic provider")
}
