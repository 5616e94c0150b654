package googlegemini

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// SDKName is the registry key for the SDK-backed provider.
const SDKName = "googlegemini"

// GoogleGeminiProvider implements the same operations as GoogleProvider on
// top of the official generative-ai-go client.
type GoogleGeminiProvider struct {
	cfg providers.Config
}

// ModelInfo describes one model available to a credential.
type ModelInfo struct {
	Name        string
	DisplayName string
	Methods     []string
}

// NewGoogleGeminiProvider creates a new SDK-backed Google Gemini provider
func NewGoogleGeminiProvider(cfg providers.Config) *GoogleGeminiProvider {
	return &GoogleGeminiProvider{cfg: cfg.Normalize(DefaultBaseURL)}
}

// GenerateCompletion generates a completion using the specified Google Gemini model
func (p *GoogleGeminiProvider) GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error) {
	var resp *genai.GenerateContentResponse
	err := p.do(ctx, credential, func(ctx context.Context, client *genai.Client) (err error) {
		resp, err = client.GenerativeModel(modelName).GenerateContent(ctx, genai.Text(input))
		return err
	})
	if err != nil {
		return nil, err
	}

	text, ok := candidateText(resp)
	if !ok {
		return nil, wire.MissingField(SDKName, "candidates or content")
	}

	response := &models.CompletionResponse{Text: text, Provider: SDKName, Model: modelName}
	if tokens := int(resp.Candidates[0].TokenCount); tokens > 0 {
		response.Usage = models.NewUsage(0, tokens, 0)
	}
	return response, nil
}

// GenerateEmbedding generates an embedding using the Google Gemini model
func (p *GoogleGeminiProvider) GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error) {
	var resp *genai.EmbedContentResponse
	err := p.do(ctx, credential, func(ctx context.Context, client *genai.Client) (err error) {
		resp, err = client.EmbeddingModel(modelName).EmbedContent(ctx, genai.Text(input))
		return err
	})
	if err != nil {
		return nil, err
	}

	values, ok := embeddingValues(resp)
	if !ok {
		return nil, wire.MissingField(SDKName, "embedding.values")
	}
	return &models.EmbeddingResponse{Embedding: values, Provider: SDKName, Model: modelName}, nil
}

// ListModels returns every model the credential can see.
func (p *GoogleGeminiProvider) ListModels(ctx context.Context, credential string) ([]ModelInfo, error) {
	var out []ModelInfo
	err := p.do(ctx, credential, func(ctx context.Context, client *genai.Client) error {
		iter := client.ListModels(ctx)
		for {
			m, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			out = append(out, ModelInfo{Name: m.Name, DisplayName: m.DisplayName, Methods: m.SupportedGenerationMethods})
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// do runs fn against a fresh client under the configured timeout. Errors
// returned by fn come from the SDK and are mapped by sdkError.
func (p *GoogleGeminiProvider) do(ctx context.Context, credential string, fn func(context.Context, *genai.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	client, err := p.newClient(ctx, credential)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, tracker := transport.Track(ctx)
	if err := fn(ctx, client); err != nil {
		return sdkError(err, tracker, credential)
	}
	return nil
}

func (p *GoogleGeminiProvider) newClient(ctx context.Context, credential string) (*genai.Client, error) {
	opts, err := clientOptions(p.cfg.BaseURL, credential)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, common.NewError(common.KindTransport, transport.FailureConnection.String(), err).WithProvider(SDKName)
	}
	return client, nil
}

// clientOptions points the SDK at a non-default endpoint when one is configured.
// The endpoint keeps its scheme so plain http stand-ins can be reached.
func clientOptions(baseURL, credential string) ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithAPIKey(credential)}
	if baseURL == "" || baseURL == DefaultBaseURL {
		return opts, nil
	}
	endpoint, err := sdkEndpoint(baseURL)
	if err != nil {
		return nil, err
	}
	return append(opts, option.WithEndpoint(endpoint)), nil
}

func sdkEndpoint(baseURL string) (string, error) {
	ep, err := transport.ParseBaseURL(baseURL)
	if err != nil {
		return "", common.NewError(common.KindTransport, transport.FailureInvalidURL.String(), err).WithProvider(SDKName)
	}
	return strings.TrimSuffix(ep.URL("/"), "/"), nil
}

func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", false
	}
	text, ok := c.Parts[0].(genai.Text)
	if !ok || text == "" {
		return "", false
	}
	return string(text), true
}

func embeddingValues(resp *genai.EmbedContentResponse) ([]float64, bool) {
	if resp == nil || resp.Embedding == nil || resp.Embedding.Values == nil {
		return nil, false
	}
	values := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		values[i] = float64(v)
	}
	return values, true
}

// sdkError maps an SDK failure onto the same messages the REST providers
// produce. The SDK puts the API key in the request URL, so URL-bearing error
// text never becomes a message; the raw error is kept only as the cause.
func sdkError(err error, tracker *transport.Tracker, credential string) *common.Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return statusError(apiErr)
	}

	var urlErr *url.Error
	switch {
	case errors.As(err, &urlErr):
		return transportError(tracker.Classify(err))
	case errors.Is(err, context.Canceled):
		return transportError(&transport.Error{Kind: transport.FailureCanceled, Err: err})
	case errors.Is(err, context.DeadlineExceeded):
		return transportError(&transport.Error{Kind: transport.FailureRead, Err: err})
	}

	msg := err.Error()
	if credential != "" {
		msg = strings.ReplaceAll(msg, credential, "[redacted]")
	}
	return common.NewError(common.KindAPI, msg, err).WithProvider(SDKName)
}

// statusError applies the shared non-2xx rule to the body the SDK captured.
func statusError(apiErr *googleapi.Error) *common.Error {
	var e *common.Error
	switch {
	case apiErr.Body != "":
		e = wire.StatusError(SDKName, apiErr.Code, []byte(apiErr.Body))
	case apiErr.Message != "":
		e = common.NewError(common.KindAPI, apiErr.Message, nil).WithProvider(SDKName).WithStatus(apiErr.Code)
	default:
		e = wire.StatusError(SDKName, apiErr.Code, nil)
	}
	e.Err = apiErr
	return e
}

func transportError(terr *transport.Error) *common.Error {
	return common.NewError(common.KindTransport, terr.Error(), terr).WithProvider(SDKName)
}
