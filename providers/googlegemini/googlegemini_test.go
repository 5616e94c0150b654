package googlegemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/providers"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestGoogleGeminiProvider(t *testing.T) {
	// Skip the test if GEMINI_API_KEY is not set
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping Google Gemini provider test")
	}

	ctx := context.Background()
	provider := NewGoogleGeminiProvider(providers.Config{})

	t.Run("GenerateCompletion", func(t *testing.T) {
		response, err := provider.GenerateCompletion(ctx, "gemini-1.5-flash", apiKey, "Explain the concept of quantum computing in simple terms.")
		require.NoError(t, err)
		assert.NotEmpty(t, response.Text)
	})

	t.Run("GenerateEmbedding", func(t *testing.T) {
		response, err := provider.GenerateEmbedding(ctx, "text-embedding-004", apiKey, "hello world")
		require.NoError(t, err)
		assert.NotEmpty(t, response.Embedding)
	})

	t.Run("ListModels", func(t *testing.T) {
		list, err := provider.ListModels(ctx, apiKey)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})
}

func TestCandidateText(t *testing.T) {
	_, ok := candidateText(nil)
	assert.False(t, ok)

	_, ok = candidateText(&genai.GenerateContentResponse{})
	assert.False(t, ok)

	_, ok = candidateText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.False(t, ok)

	_, ok = candidateText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
	}}})
	assert.False(t, ok)

	text, ok := candidateText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("hi")}},
	}}})
	assert.True(t, ok)
	assert.Equal(t, "hi", text)
}

func TestEmbeddingValues(t *testing.T) {
	_, ok := embeddingValues(&genai.EmbedContentResponse{})
	assert.False(t, ok)

	values, ok := embeddingValues(&genai.EmbedContentResponse{Embedding: &genai.ContentEmbedding{Values: []float32{0.5, -2}}})
	assert.True(t, ok)
	assert.Equal(t, []float64{0.5, -2}, values)
}

func TestClientOptions(t *testing.T) {
	opts, err := clientOptions(DefaultBaseURL, "k")
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	opts, err = clientOptions("http://127.0.0.1:9000", "k")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	_, err = clientOptions("ftp://nope", "k")
	require.Error(t, err)
	assert.Equal(t, "Invalid URL format", err.Error())
}

func TestSDKEndpointKeepsScheme(t *testing.T) {
	for raw, want := range map[string]string{
		"http://127.0.0.1:9000":       "http://127.0.0.1:9000",
		"http://localhost":            "http://localhost",
		"https://proxy.internal/":     "https://proxy.internal",
		"https://proxy.internal:8443": "https://proxy.internal:8443",
	} {
		got, err := sdkEndpoint(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func fakeGemini(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGenerateCompletionThroughBaseURL(t *testing.T) {
	srv, hits := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"pong"}]},"tokenCount":2}]}`))
	})

	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: srv.URL})
	resp, err := provider.GenerateCompletion(context.Background(), "gemini-pro", "test-key", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text)
	assert.Equal(t, SDKName, resp.Provider)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 2, resp.Usage.CompletionTokens)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestGenerateEmbeddingThroughBaseURL(t *testing.T) {
	srv, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/text-embedding-004:embedContent", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":{"values":[0.5,-2]}}`))
	})

	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: srv.URL})
	resp, err := provider.GenerateEmbedding(context.Background(), "text-embedding-004", "test-key", "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -2}, resp.Embedding)
}

func TestListModelsThroughBaseURL(t *testing.T) {
	srv, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"models/gemini-pro","displayName":"Gemini Pro","supportedGenerationMethods":["generateContent"]}]}`))
	})

	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: srv.URL})
	list, err := provider.ListModels(context.Background(), "test-key")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gemini Pro", list[0].DisplayName)
	assert.Equal(t, []string{"generateContent"}, list[0].Methods)
}

func TestStructuredErrorMessageWins(t *testing.T) {
	srv, hits := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`))
	})

	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: srv.URL})
	_, err := provider.GenerateCompletion(context.Background(), "gemini-pro", "test-key", "ping")
	require.Error(t, err)
	assert.Equal(t, "rate limited", err.Error())
	assert.Equal(t, common.KindAPI, common.KindOf(err))

	var cerr *common.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusTooManyRequests, cerr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestUnstructuredErrorBodyPreview(t *testing.T) {
	srv, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: srv.URL})
	_, err := provider.GenerateEmbedding(context.Background(), "text-embedding-004", "test-key", "hello")
	require.Error(t, err)
	assert.Equal(t, "HTTP 502 - upstream exploded", err.Error())
}

func TestConnectionFailureHidesKey(t *testing.T) {
	const key = "SECRET-KEY-123"
	provider := NewGoogleGeminiProvider(providers.Config{BaseURL: "http://127.0.0.1:1"})

	_, err := provider.GenerateCompletion(context.Background(), "gemini-pro", key, "ping")
	require.Error(t, err)
	assert.Equal(t, "Connection failed", err.Error())
	assert.Equal(t, common.KindTransport, common.KindOf(err))
	assert.NotContains(t, err.Error(), key)
}

func TestSDKError(t *testing.T) {
	assert.Equal(t, "Request canceled", sdkError(context.Canceled, nil, "k").Error())
	assert.Equal(t, "Read error", sdkError(context.DeadlineExceeded, nil, "k").Error())

	urlErr := &url.Error{Op: "Post", URL: "http://127.0.0.1:1/v1beta/models/m:generateContent?key=k", Err: syscall.ECONNREFUSED}
	err := sdkError(urlErr, nil, "k")
	assert.Equal(t, common.KindTransport, err.Kind)
	assert.Equal(t, "Connection failed", err.Message)

	err = sdkError(&googleapi.Error{Code: 400, Message: "API key not valid"}, nil, "k")
	assert.Equal(t, common.KindAPI, err.Kind)
	assert.Equal(t, "API key not valid", err.Message)
	assert.Equal(t, 400, err.StatusCode)

	err = sdkError(&googleapi.Error{Code: 500, Body: `{"error":"boom"}`}, nil, "k")
	assert.Equal(t, "boom", err.Message)

	err = sdkError(errors.New("blocked for key sk-live"), nil, "sk-live")
	assert.Equal(t, common.KindAPI, err.Kind)
	assert.Equal(t, "blocked for key [redacted]", err.Message)
}
