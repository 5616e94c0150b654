// Package udf adapts provider calls to scalar SQL functions: nullable text
// in, text or NULL or an error message out, always within a fixed buffer.
package udf

import (
	"context"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/models"
)

// Invoker runs one provider request and returns its payload as text.
// *client.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, req models.Request) (string, error)
}

// Adapter implements ai_prompt and create_embed on top of an Invoker.
// It is stateless between calls.
type Adapter struct {
	invoker       Invoker
	logger        logging.Logger
	maxOutputSize int
	maxErrorLen   int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxOutputSize sets the host output buffer size, terminator included.
func WithMaxOutputSize(n int) Option {
	return func(a *Adapter) {
		a.maxOutputSize = n
	}
}

// WithMaxErrorLength caps error messages, in bytes.
func WithMaxErrorLength(n int) Option {
	return func(a *Adapter) {
		a.maxErrorLen = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an Adapter.
func New(invoker Invoker, options ...Option) *Adapter {
	a := &Adapter{
		invoker:       invoker,
		logger:        logging.NewNopLogger(),
		maxOutputSize: common.DefaultMaxOutputSize,
		maxErrorLen:   common.MaxErrorMessageLength,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// MaxOutputSize reports the output buffer size in bytes.
func (a *Adapter) MaxOutputSize() int {
	return a.maxOutputSize
}

// AIPrompt implements ai_prompt(provider, model, api_key, prompt).
// Any NULL argument yields a NULL result with no validation or I/O.
func (a *Adapter) AIPrompt(ctx context.Context, provider, model, apiKey, prompt Arg) *Result {
	if anyNull(provider, model, apiKey, prompt) {
		return nullResult()
	}
	args := promptArgs{Provider: provider.Value, Model: model.Value, APIKey: apiKey.Value, Text: prompt.Value}
	if err := validateArgs(args); err != nil {
		return a.fail("ai_prompt", err)
	}
	return a.invoke(ctx, "ai_prompt", models.Request{
		Provider:   args.Provider,
		Model:      args.Model,
		Credential: args.APIKey,
		Input:      args.Text,
		Operation:  models.OperationGenerate,
	})
}

// CreateEmbed implements create_embed(provider, model, api_key, text).
// The value is the embedding as a JSON array of numbers.
func (a *Adapter) CreateEmbed(ctx context.Context, provider, model, apiKey, text Arg) *Result {
	if anyNull(provider, model, apiKey, text) {
		return nullResult()
	}
	args := embedArgs{Provider: provider.Value, Model: model.Value, APIKey: apiKey.Value, Text: text.Value}
	if err := validateArgs(args); err != nil {
		return a.fail("create_embed", err)
	}
	return a.invoke(ctx, "create_embed", models.Request{
		Provider:   args.Provider,
		Model:      args.Model,
		Credential: args.APIKey,
		Input:      args.Text,
		Operation:  models.OperationEmbed,
	})
}

func (a *Adapter) invoke(ctx context.Context, function string, req models.Request) *Result {
	payload, err := a.invoker.Invoke(ctx, req)
	if err != nil {
		return a.fail(function, err)
	}
	res := valueResult(payload, a.maxOutputSize)
	if res.Truncated {
		a.logger.Warnf("%s output truncated from %d to %d bytes", function, len(payload), res.ActualLen)
	}
	return res
}

func (a *Adapter) fail(function string, err error) *Result {
	a.logger.Debugf("%s failed (%s): %v", function, common.KindOf(err), err)
	return errorResult(err, a.maxErrorLen)
}
