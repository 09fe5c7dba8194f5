// Package llmutil wires the built-in providers and post-processes replies.
package llmutil

import (
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llm/anthropic"
	"github.com/efebarandurmaz/lodestone/internal/llm/openai"
)

// openAICompatible lists providers served by the OpenAI client under their
// preset base URL.
var openAICompatible = []string{"openai", "azure", "groq", "ollama", "together", "deepseek", "custom"}

// RegisterDefaultProviders registers every built-in provider constructor into
// factory. Both binaries call this so the set stays in one place.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c), nil
	})
	for _, name := range openAICompatible {
		name := name
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			c.Provider = name
			return openai.New(c)
		})
	}
}

// NewProvider builds a provider from cfg using the default registrations.
// It returns nil, nil when cfg.Provider is empty or "none".
func NewProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	f := llm.NewFactory()
	RegisterDefaultProviders(f)
	return f.Create(cfg)
}
