package analyzers

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llm/tokenizer"
)

// Defaults for Config.
const (
	DefaultModel               = "gpt-3.5-turbo"
	DefaultTemperature         = 1.0
	DefaultChunkSize           = 1000
	DefaultProgramMaxTokens    = 1000
	DefaultContextWindow       = 4096
	DefaultPromptCeiling       = 4000
	DefaultUnbudgetedMaxTokens = 2000
)

// Config holds the per-call settings shared by the analyzers. A Config must
// not be modified once handed to an analyzer.
type Config struct {
	Model         string  `json:"model"`
	SystemMessage string  `json:"system_message,omitempty"`
	Temperature   float64 `json:"temperature"`

	// Encoder counts prompt tokens for the function analyzer's budget.
	// Nil selects the unbudgeted fallback.
	Encoder tokenizer.Encoder `json:"-"`

	ChunkSize        int  `json:"chunk_size"`
	KeepRemainder    bool `json:"keep_remainder"`
	ProgramMaxTokens int  `json:"program_max_tokens"`

	ContextWindow       int `json:"context_window"`
	PromptCeiling       int `json:"prompt_ceiling"`
	UnbudgetedMaxTokens int `json:"unbudgeted_max_tokens"`
}

// DefaultConfig returns the default settings with the tokenizer of the
// default model, or no tokenizer when it cannot be loaded.
func DefaultConfig() *Config {
	cfg := &Config{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		ChunkSize:           DefaultChunkSize,
		ProgramMaxTokens:    DefaultProgramMaxTokens,
		ContextWindow:       DefaultContextWindow,
		PromptCeiling:       DefaultPromptCeiling,
		UnbudgetedMaxTokens: DefaultUnbudgetedMaxTokens,
	}
	if enc, err := tokenizer.ForModel(cfg.Model); err == nil {
		cfg.Encoder = enc
	}
	return cfg
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid analyzer config")

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.ProgramMaxTokens <= 0:
		return fmt.Errorf("%w: program_max_tokens must be positive, got %d", ErrInvalidConfig, c.ProgramMaxTokens)
	case c.UnbudgetedMaxTokens <= 0:
		return fmt.Errorf("%w: unbudgeted_max_tokens must be positive, got %d", ErrInvalidConfig, c.UnbudgetedMaxTokens)
	case c.PromptCeiling <= 0:
		return fmt.Errorf("%w: prompt_ceiling must be positive, got %d", ErrInvalidConfig, c.PromptCeiling)
	case c.ContextWindow <= c.PromptCeiling:
		// Otherwise a prompt just under the ceiling would leave no room for output.
		return fmt.Errorf("%w: context_window (%d) must exceed prompt_ceiling (%d)", ErrInvalidConfig, c.ContextWindow, c.PromptCeiling)
	}
	return nil
}

func (c *Config) submitOptions() llm.SubmitOptions {
	return llm.SubmitOptions{
		Model:         c.Model,
		SystemMessage: c.SystemMessage,
		Temperature:   c.Temperature,
	}
}

// Budget is the token plan for one function prompt.
type Budget struct {
	// Counted is false when no encoder was available.
	Counted      bool
	PromptTokens int
	MaxTokens    int
	Skip         bool
}

// BudgetFor plans the output cap for prompt. A prompt at or above the
// ceiling is skipped; otherwise the cap is what remains of the context
// window. Without an encoder the fixed unbudgeted cap applies.
func (c *Config) BudgetFor(prompt string) Budget {
	if c.Encoder == nil {
		return Budget{MaxTokens: c.UnbudgetedMaxTokens}
	}

	n := tokenizer.Count(c.Encoder, prompt)
	b := Budget{Counted: true, PromptTokens: n}
	if n >= c.PromptCeiling {
		b.Skip = true
		return b
	}
	b.MaxTokens = c.ContextWindow - n
	if b.MaxTokens < 1 {
		b.MaxTokens = 0
		b.Skip = true
	}
	return b
}
