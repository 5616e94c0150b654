package googlegemini

import (
	"context"
	"net/url"

	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
)

const (
	// Name is the registry key for the REST provider.
	Name = "google"

	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	modelsPath = "/v1beta/models/"
)

// GoogleProvider talks to the Generative Language REST API directly.
type GoogleProvider struct {
	cfg providers.Config
}

// NewGoogleProvider creates a new REST-backed Google provider
func NewGoogleProvider(cfg providers.Config) *GoogleProvider {
	return &GoogleProvider{cfg: cfg.Normalize(DefaultBaseURL)}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type embedRequest struct {
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// GenerateCompletion calls models/<model>:generateContent with input as the only part.
func (p *GoogleProvider) GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error) {
	body, err := wire.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: input}}}}})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, p.request(modelName, "generateContent", credential, body))
	if err != nil {
		return nil, err
	}

	var result generateResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 || result.Candidates[0].Content.Parts[0].Text == "" {
		return nil, wire.MissingField(Name, "candidates or content")
	}

	response := &models.CompletionResponse{
		Text:     result.Candidates[0].Content.Parts[0].Text,
		Provider: Name,
		Model:    modelName,
	}
	if u := result.UsageMetadata; u != nil {
		response.Usage = models.NewUsage(u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
	}
	return response, nil
}

// GenerateEmbedding calls models/<model>:embedContent.
func (p *GoogleProvider) GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error) {
	body, err := wire.Marshal(embedRequest{Content: content{Parts: []part{{Text: input}}}})
	if err != nil {
		return nil, wire.EncodeError(Name, err)
	}

	resp, err := wire.Call(ctx, p.cfg.Transport, Name, p.request(modelName, "embedContent", credential, body))
	if err != nil {
		return nil, err
	}

	var result embedResponse
	if err := wire.Parse(Name, resp, &result); err != nil {
		return nil, err
	}
	if result.Embedding == nil || result.Embedding.Values == nil {
		return nil, wire.MissingField(Name, "embedding.values")
	}

	return &models.EmbeddingResponse{
		Embedding: result.Embedding.Values,
		Provider:  Name,
		Model:     modelName,
	}, nil
}

func (p *GoogleProvider) request(modelName, method, credential string, body []byte) *transport.Request {
	return &transport.Request{
		BaseURL: p.cfg.BaseURL,
		Path:    modelsPath + url.PathEscape(modelName) + ":" + method,
		Body:    body,
		Headers: map[string]string{
			"x-goog-api-key": credential,
			"content-type":   "application/json",
		},
		Timeout: p.cfg.Timeout,
	}
}
