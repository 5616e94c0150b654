package openai

import (
	"context"

	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
)

const (
	// Name is the registry key for this provider.
	Name = "openai"

	DefaultBaseURL = "https://api.openai.com"

	chatPath       = "/v1/chat/completions"
	embeddingsPath = "/v1/embeddings"
)

// OpenAIProvider implements the OpenAI-specific functionality. Any server
// speaking the same API can be reached through Config.BaseURL.
type OpenAIProvider struct {
	cfg providers.Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg providers.Config) *OpenAIProvider {
	return &OpenAIProvider{cfg: cfg.Normalize(DefaultBaseURL)}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage"`
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage *usage `json:"usage"`
}

// GenerateCompletion generates a completion using the specified OpenAI model
func (p *OpenAIProvider) GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error) {
	body, err := wire.Marshal(chatRequest{
		Model:    modelName,
		Messages: []models.ChatMessage{{Role: "user", Content: input}},
	})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, p.request(chatPath, credential, body))
	if err != nil {
		return nil, err
	}

	var result chatResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil ||
		result.Choices[0].Message.Content == nil || *result.Choices[0].Message.Content == "" {
		return nil, wire.MissingField(Name, "choices")
	}

	return &models.CompletionResponse{
		Text:     *result.Choices[0].Message.Content,
		Usage:    result.Usage.toModel(),
		Provider: Name,
		Model:    modelName,
	}, nil
}

// GenerateEmbedding generates an embedding using the specified OpenAI model
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error) {
	body, err := wire.Marshal(embeddingsRequest{Model: modelName, Input: input})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, p.request(embeddingsPath, credential, body))
	if err != nil {
		return nil, err
	}

	var result embeddingsResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 || result.Data[0].Embedding == nil {
		return nil, wire.MissingField(Name, "data.embedding")
	}

	return &models.EmbeddingResponse{
		Embedding: result.Data[0].Embedding,
		Usage:     result.Usage.toModel(),
		Provider:  Name,
		Model:     modelName,
	}, nil
}

func (p *OpenAIProvider) request(path, credential string, body []byte) *transport.Request {
	return &transport.Request{
		BaseURL: p.cfg.BaseURL,
		Path:    path,
		Body:    body,
		Headers: map[string]string{
			"Authorization": "Bearer " + credential,
			"Content-Type":  "application/json",
		},
		Timeout: p.cfg.Timeout,
	}
}

func (u *usage) toModel() *models.Usage {
	if u == nil {
		return nil
	}
	return models.NewUsage(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}
