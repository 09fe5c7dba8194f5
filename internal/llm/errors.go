package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxTokens is returned when a request asks for fewer than one
	// output token.
	ErrInvalidMaxTokens = errors.New("max tokens must be at least 1")
	// ErrEmptyChoices is returned when the API answers without any choice.
	ErrEmptyChoices = errors.New("response contained no choices")
	// ErrNoProvider is returned when a component is built without a provider.
	ErrNoProvider = errors.New("no LLM provider configured")
)

// ProviderError reports a transport or API failure from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is, or wraps, a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
