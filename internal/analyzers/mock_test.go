package analyzers

import (
	"context"
	"sync"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

// mockProvider records every request and answers with a fixed reply.
type mockProvider struct {
	name    string
	content string
	err     error

	mu    sync.Mutex
	calls []mockCall
}

type mockCall struct {
	prompt *llm.Prompt
	opts   *llm.RequestOptions
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(_ context.Context, p *llm.Prompt, o *llm.RequestOptions) (*llm.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{prompt: p, opts: o})
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.content}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockProvider) lastCall() mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// fixedEncoder reports n tokens for any text.
type fixedEncoder int

func (f fixedEncoder) Encode(string) []int { return make([]int, int(f)) }

// testConfig is DefaultConfig without a real tokenizer.
func testConfig() *Config {
	return &Config{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		ChunkSize:           DefaultChunkSize,
		ProgramMaxTokens:    DefaultProgramMaxTokens,
		ContextWindow:       DefaultContextWindow,
		PromptCeiling:       DefaultPromptCeiling,
		UnbudgetedMaxTokens: DefaultUnbudgetedMaxTokens,
	}
}
