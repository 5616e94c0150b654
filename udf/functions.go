package udf

import (
	"context"
	"errors"
	"fmt"
)

// ExtensionName and ExtensionVersion identify the function set to a host.
const (
	ExtensionName    = "sqlai"
	ExtensionVersion = "0.1.0"
)

// Function describes one exported scalar function. Every parameter and the
// return value are text.
type Function struct {
	Name       string   `json:"name"`
	Params     []string `json:"params"`
	Returns    string   `json:"returns"`
	BufferSize int      `json:"buffer_size"`

	call func(a *Adapter, ctx context.Context, args []Arg) *Result
}

// Functions lists what the extension registers, for an adapter whose output
// buffer is bufferSize bytes.
func Functions(bufferSize int) []Function {
	return []Function{
		{
			Name:       "ai_prompt",
			Params:     []string{"provider", "model", "api_key", "prompt"},
			Returns:    "text",
			BufferSize: bufferSize,
			call: func(a *Adapter, ctx context.Context, args []Arg) *Result {
				return a.AIPrompt(ctx, args[0], args[1], args[2], args[3])
			},
		},
		{
			Name:       "create_embed",
			Params:     []string{"provider", "model", "api_key", "text"},
			Returns:    "text",
			BufferSize: bufferSize,
			call: func(a *Adapter, ctx context.Context, args []Arg) *Result {
				return a.CreateEmbed(ctx, args[0], args[1], args[2], args[3])
			},
		},
	}
}

// Functions lists the functions served by this adapter.
func (a *Adapter) Functions() []Function {
	return Functions(a.maxOutputSize)
}

// ErrUnknownFunction is returned by Call for names not in the function list.
var ErrUnknownFunction = errors.New("unknown function")

// Call runs the named function with positional arguments. The error is
// reserved for calls the host should never have made; provider failures come
// back as a ResultError.
func (a *Adapter) Call(ctx context.Context, name string, args []Arg) (*Result, error) {
	for _, fn := range a.Functions() {
		if fn.Name != name {
			continue
		}
		if len(args) != len(fn.Params) {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", name, len(fn.Params), len(args))
		}
		return fn.call(a, ctx, args), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
}
