package llm

import (
	"context"
	"fmt"
)

// SubmitOptions carries the per-call settings shared by all analyzers.
type SubmitOptions struct {
	Model         string
	SystemMessage string
	Temperature   float64
}

// Submit sends history to the provider with the given output cap and returns
// the reply text. The system message, when set, is placed before the history.
func Submit(ctx context.Context, p Provider, history []Message, maxTokens int, opts SubmitOptions) (string, error) {
	resp, err := SubmitResponse(ctx, p, history, maxTokens, opts)
	if err != nil {
		return "", err
	}
	return StripThinkingTags(resp.Content), nil
}

// SubmitResponse is Submit without post-processing of the reply.
func SubmitResponse(ctx context.Context, p Provider, history []Message, maxTokens int, opts SubmitOptions) (*Response, error) {
	if maxTokens < 1 {
		return nil, fmt.Errorf("submit: %w (got %d)", ErrInvalidMaxTokens, maxTokens)
	}

	msgs := make([]Message, len(history))
	copy(msgs, history)

	prompt := &Prompt{
		SystemPrompt: opts.SystemMessage,
		Messages:     msgs,
	}
	return p.Complete(ctx, prompt, &RequestOptions{
		Model:       opts.Model,
		MaxTokens:   IntPtr(maxTokens),
		Temperature: Float64Ptr(opts.Temperature),
	})
}
