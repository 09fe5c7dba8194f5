package observability

import (
	"context"
	"time"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

// tracedProvider wraps a provider with an llm.complete span per call.
type tracedProvider struct {
	inner   llm.Provider
	model   string
	metrics *Metrics
}

// TraceProvider returns p instrumented with spans and, when m is non-nil,
// request metrics. model labels spans when a request carries no override.
func TraceProvider(p llm.Provider, model string, m *Metrics) llm.Provider {
	if p == nil {
		return nil
	}
	return &tracedProvider{inner: p, model: model, metrics: m}
}

func (t *tracedProvider) Name() string { return t.inner.Name() }

func (t *tracedProvider) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	model := t.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	ctx, span := StartLLMSpan(ctx, t.inner.Name(), model)
	defer span.End()

	start := time.Now()
	resp, err := t.inner.Complete(ctx, prompt, opts)
	elapsed := time.Since(start)

	if t.metrics != nil {
		tokens := 0
		if resp != nil {
			tokens = resp.InputTokens + resp.OutputTokens
		}
		t.metrics.RecordLLMRequest(t.inner.Name(), elapsed, tokens, err)
	}
	if err != nil {
		RecordError(span, err)
		return nil, err
	}
	RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, elapsed)
	return resp, nil
}
