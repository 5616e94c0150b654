package ollama

import (
	"context"

	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
)

const (
	// Name is the registry key for this provider.
	Name = "ollama"

	DefaultBaseURL = "http://localhost:11434"

	generatePath   = "/api/generate"
	embeddingsPath = "/api/embeddings"
)

// OllamaProvider implements the Ollama-specific functionality
type OllamaProvider struct {
	cfg providers.Config
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg providers.Config) *OllamaProvider {
	return &OllamaProvider{cfg: cfg.Normalize(DefaultBaseURL)}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateCompletion generates a completion using the specified Ollama model
func (p *OllamaProvider) GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error) {
	body, err := wire.Marshal(generateRequest{Model: modelName, Prompt: input, Stream: false})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, p.request(generatePath, credential, body))
	if err != nil {
		return nil, err
	}

	var result generateResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if result.Response == "" {
		return nil, wire.MissingField(Name, "response")
	}

	response := &models.CompletionResponse{Text: result.Response, Provider: Name, Model: modelName}
	if result.PromptEvalCount > 0 || result.EvalCount > 0 {
		response.Usage = models.NewUsage(result.PromptEvalCount, result.EvalCount, 0)
	}
	return response, nil
}

// GenerateEmbedding generates an embedding using the specified Ollama model
func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error) {
	body, err := wire.Marshal(embeddingsRequest{Model: modelName, Prompt: input})
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
	if result.Embedding == nil {
		return nil, wire.MissingField(Name, "embedding")
	}
	return &models.EmbeddingResponse{Embedding: result.Embedding, Provider: Name, Model: modelName}, nil
}

// request forwards the credential as a bearer token for proxies in front of
// Ollama; a bare server ignores it.
func (p *OllamaProvider) request(path, credential string, body []byte) *transport.Request {
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
