package client

import (
	"fmt"
	"sort"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/providers/anthropic"
	"github.com/1broseidon/sqlai/providers/googlegemini"
	"github.com/1broseidon/sqlai/providers/ollama"
	"github.com/1broseidon/sqlai/providers/openai"
)

// Factory builds a fresh provider for one invocation.
type Factory func(cfg providers.Config) Provider

// Registration binds a provider name to its factory.
type Registration struct {
	Name string
	New  Factory
}

// Registry maps provider names to factories. It is read-only once built and
// safe for concurrent use.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a registry from the given registrations. Names are
// matched exactly and must be unique.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(regs))}
	for _, reg := range regs {
		if reg.Name == "" {
			return nil, fmt.Errorf("registry: provider name cannot be empty")
		}
		if reg.New == nil {
			return nil, fmt.Errorf("registry: provider %q has no factory", reg.Name)
		}
		if _, dup := r.factories[reg.Name]; dup {
			return nil, fmt.Errorf("registry: provider %q registered twice", reg.Name)
		}
		r.factories[reg.Name] = reg.New
	}
	return r, nil
}

// Builtin lists the providers shipped with this module.
func Builtin() []Registration {
	return []Registration{
		{Name: anthropic.Name, New: func(cfg providers.Config) Provider { return anthropic.NewAnthropicProvider(cfg) }},
		{Name: googlegemini.Name, New: func(cfg providers.Config) Provider { return googlegemini.NewGoogleProvider(cfg) }},
		{Name: googlegemini.SDKName, New: func(cfg providers.Config) Provider { return googlegemini.NewGoogleGeminiProvider(cfg) }},
		{Name: openai.Name, New: func(cfg providers.Config) Provider { return openai.NewOpenAIProvider(cfg) }},
		{Name: ollama.Name, New: func(cfg providers.Config) Provider { return ollama.NewOllamaProvider(cfg) }},
	}
}

// NewDefaultRegistry returns a registry holding every builtin provider.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve builds a new provider instance for name. Unknown names fail with
// a validation error and nothing is constructed.
func (r *Registry) Resolve(name string, cfg providers.Config) (Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, common.UnknownProviderError(name)
	}
	return factory(cfg), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
