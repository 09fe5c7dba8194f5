// Package openai implements llm.Provider on top of the official OpenAI Go SDK.
// It serves OpenAI, Azure OpenAI and any OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Provider for chat completions.
type Client struct {
	name   string
	model  string
	client *openai.Client
}

// New creates a provider from config. cfg.Provider selects the flavour:
// "azure" uses the Azure endpoint scheme, everything else is treated as an
// OpenAI-compatible base URL.
func New(cfg llm.ProviderConfig) (*Client, error) {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}

	// Transport retries stay off; a failed call is reported, not repeated.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	switch name {
	case "azure":
		if cfg.BaseURL == "" {
			return nil, errors.New("azure provider requires base_url (resource endpoint)")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2024-06-01"
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.BaseURL, apiVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	default:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = llm.KnownProviders[name]
		}
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		opts = append(opts, option.WithBaseURL(baseURL))
		if cfg.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.APIKey))
		}
		if cfg.Organization != "" {
			opts = append(opts, option.WithOrganization(cfg.Organization))
		}
	}

	return &Client{
		name:   name,
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.F(c.modelFor(opts)),
		Messages: openai.F(toMessages(prompt)),
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			params.MaxTokens = openai.F(int64(*opts.MaxTokens))
		}
		if opts.Temperature != nil {
			params.Temperature = openai.F(*opts.Temperature)
		}
		if opts.TopP != nil {
			params.TopP = openai.F(*opts.TopP)
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: c.name, Err: llm.ErrEmptyChoices}
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		StopReason:   string(choice.FinishReason),
	}, nil
}

func (c *Client) modelFor(opts *llm.RequestOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return c.model
}

func (c *Client) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{Provider: c.name, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &llm.ProviderError{Provider: c.name, Err: fmt.Errorf("request failed: %w", err)}
}

func toMessages(prompt *llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.SystemPrompt))
	}
	for _, m := range prompt.Messages {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}
