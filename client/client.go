package client

import (
	"context"
	"fmt"
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/internal/wire"
	"github.com/1broseidon/sqlai/models"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/transport"
	"github.com/google/uuid"
)

// Provider interface defines the methods that each provider must implement
type Provider interface {
	GenerateCompletion(ctx context.Context, modelName, credential, input string) (*models.CompletionResponse, error)
	GenerateEmbedding(ctx context.Context, modelName, credential, input string) (*models.EmbeddingResponse, error)
}

// Client represents the main sqlai client. It holds no per-call state and
// may be shared between goroutines.
type Client struct {
	registry  *Registry
	transport transport.Poster
	logger    logging.Logger
	level     *common.LogLevel
	timeout   time.Duration
	baseURLs  map[string]string
}

// NewClient creates a new client. Without options it resolves the builtin
// providers over a default transport and logs nothing.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		logger:   logging.NewDefaultLogger(),
		timeout:  common.DefaultTimeout,
		baseURLs: make(map[string]string),
	}

	for _, option := range options {
		option(c)
	}

	if c.level != nil {
		c.logger.SetLevel(*c.level)
	}
	if c.registry == nil {
		c.registry = NewDefaultRegistry()
	}
	if c.transport == nil {
		c.transport = transport.New(transport.WithLogger(c.logger))
	}

	c.logger.Debugf("Initialized sqlai client with providers %v", c.registry.Names())
	return c
}

// Registry returns the registry the client resolves names against.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Provider builds a fresh instance of the named provider.
func (c *Client) Provider(name string) (Provider, error) {
	return c.registry.Resolve(name, c.providerConfig(name))
}

// GenerateCompletion runs a generate request against req.Provider.
func (c *Client) GenerateCompletion(ctx context.Context, req models.Request) (*models.CompletionResponse, error) {
	req.Operation = models.OperationGenerate
	var resp *models.CompletionResponse
	err := c.run(ctx, req, func(p Provider) error {
		var err error
		resp, err = p.GenerateCompletion(ctx, req.Model, req.Credential, req.Input)
		return err
	})
	return resp, err
}

// GenerateEmbedding runs an embed request against req.Provider.
func (c *Client) GenerateEmbedding(ctx context.Context, req models.Request) (*models.EmbeddingResponse, error) {
	req.Operation = models.OperationEmbed
	var resp *models.EmbeddingResponse
	err := c.run(ctx, req, func(p Provider) error {
		var err error
		resp, err = p.GenerateEmbedding(ctx, req.Model, req.Credential, req.Input)
		return err
	})
	return resp, err
}

// Invoke dispatches on req.Operation and returns the payload as text: the
// completion itself, or the embedding as a JSON array.
func (c *Client) Invoke(ctx context.Context, req models.Request) (string, error) {
	switch req.Operation {
	case models.OperationGenerate:
		resp, err := c.GenerateCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	case models.OperationEmbed:
		resp, err := c.GenerateEmbedding(ctx, req)
		if err != nil {
			return "", err
		}
		out, err := resp.JSON()
		if err != nil {
			return "", wire.EncodeError(req.Provider, err)
		}
		return out, nil
	default:
		return "", common.NewError(common.KindValidation, fmt.Sprintf("unknown operation: %s", req.Operation), common.ErrUnsupportedOperation)
	}
}

func (c *Client) run(ctx context.Context, req models.Request, call func(Provider) error) error {
	log := c.logger.With(
		"invocation_id", uuid.NewString(),
		"provider", req.Provider,
		"model", req.Model,
		"operation", string(req.Operation),
	)

	provider, err := c.Provider(req.Provider)
	if err != nil {
		log.Warnf("Rejected invocation: %v", err)
		return err
	}

	start := time.Now()
	log.Debugf("Dispatching %d-byte input", len(req.Input))
	if err := call(provider); err != nil {
		log.With("kind", string(common.KindOf(err)), "elapsed", time.Since(start)).Errorf("Provider call failed: %v", err)
		return err
	}
	log.With("elapsed", time.Since(start)).Info("Provider call succeeded")
	return nil
}

func (c *Client) providerConfig(name string) providers.Config {
	return providers.Config{
		Transport: c.transport,
		Logger:    c.logger.With("provider", name),
		Timeout:   c.timeout,
		BaseURL:   c.baseURLs[name],
	}
}
