package rewrite

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llm/tokenizer"
)

const (
	DefaultMinLength  = 50
	DefaultMaxRetries = 3
	DefaultModel      = "gpt-3.5-turbo"

	DefaultIdentifierRule = "It is EXTREMELY important that your entire response contains no spaces. "
	DefaultSentenceRule   = "If the input string contains any C format specifiers, then it is " +
		"EXTREMELY important that your response contains the same specifiers in the same order. "
)

// ErrInvalidConfig wraps rewriter configuration errors.
var ErrInvalidConfig = errors.New("invalid rewrite config")

// Config controls which strings are rewritten and how the model is asked.
type Config struct {
	MinLength     int     `json:"min_length" mapstructure:"min_length"`
	MaxRetries    int     `json:"max_retries" mapstructure:"max_retries"`
	Voice         Voice   `json:"voice" mapstructure:"voice"`
	Custom        Persona `json:"custom" mapstructure:"custom"`
	Model         string  `json:"model" mapstructure:"model"`
	Temperature   float64 `json:"temperature" mapstructure:"temperature"`
	SystemMessage string  `json:"system_message,omitempty" mapstructure:"system_message"`

	// Encoder sizes the first request. Nil falls back to a length estimate.
	Encoder tokenizer.Encoder `json:"-" mapstructure:"-"`

	IdentifierRule string `json:"identifier_rule" mapstructure:"identifier_rule"`
	SentenceRule   string `json:"sentence_rule" mapstructure:"sentence_rule"`
}

// DefaultConfig returns the sassy voice with the model's tokenizer when one
// is available.
func DefaultConfig() *Config {
	cfg := &Config{
		MinLength:      DefaultMinLength,
		MaxRetries:     DefaultMaxRetries,
		Voice:          VoiceSassy,
		Model:          DefaultModel,
		Temperature:    1,
		IdentifierRule: DefaultIdentifierRule,
		SentenceRule:   DefaultSentenceRule,
	}
	if enc, err := tokenizer.ForModel(cfg.Model); err == nil {
		cfg.Encoder = enc
	}
	return cfg
}

// Validate checks the config and resolves the voice.
func (c *Config) Validate() error {
	if c.MinLength < 0 {
		return fmt.Errorf("%w: min_length must not be negative", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of range [0, 2]", ErrInvalidConfig, c.Temperature)
	}
	if _, err := c.Voice.Resolve(c.Custom); err != nil {
		return err
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

// tokens estimates the token count of text, four bytes per token without an
// encoder.
func (c *Config) tokens(text string) int {
	if c.Encoder == nil {
		return len(text)/4 + 1
	}
	return tokenizer.Count(c.Encoder, text)
}
