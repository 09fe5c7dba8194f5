package rewrite

import (
	"context"
	"sync"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

// scriptedProvider answers with replies in order, repeating the last one.
type scriptedProvider struct {
	replies []string
	err     error

	mu    sync.Mutex
	calls []scriptedCall
}

type scriptedCall struct {
	prompt *llm.Prompt
	opts   *llm.RequestOptions
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(_ context.Context, p *llm.Prompt, o *llm.RequestOptions) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scriptedCall{prompt: p, opts: o})
	if s.err != nil {
		return nil, s.err
	}
	i := min(len(s.calls)-1, len(s.replies)-1)
	return &llm.Response{Content: s.replies[i]}, nil
}

func (s *scriptedProvider) call(i int) scriptedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fixedEncoder int

func (f fixedEncoder) Encode(string) []int { return make([]int, int(f)) }

func testConfig() *Config {
	return &Config{
		MinLength:      DefaultMinLength,
		MaxRetries:     DefaultMaxRetries,
		Voice:          VoiceSassy,
		Model:          DefaultModel,
		Temperature:    1,
		Encoder:        fixedEncoder(10),
		IdentifierRule: DefaultIdentifierRule,
		SentenceRule:   DefaultSentenceRule,
	}
}
