package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFactoryCreate_NoProvider(t *testing.T) {
	f := NewFactory()
	for _, name := range []string{"", "none"} {
		p, err := f.Create(ProviderConfig{Provider: name})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if p != nil {
			t.Fatalf("%q: expected nil provider", name)
		}
	}
}

func TestFactoryCreate_UnknownProviderListsRegistered(t *testing.T) {
	f := NewFactory()
	f.Register("beta", func(ProviderConfig) (Provider, error) { return nil, nil })
	f.Register("alpha", func(ProviderConfig) (Provider, error) { return nil, nil })

	_, err := f.Create(ProviderConfig{Provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "[alpha beta]") {
		t.Errorf("expected sorted registered names in error, got %q", err)
	}
}

func TestFactoryCreate_RegisteredProvider(t *testing.T) {
	f := NewFactory()
	var got ProviderConfig
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		got = cfg
		return &mockTestProvider{name: "test"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test", Model: "m", Organization: "org"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Name() != "test" {
		t.Fatalf("expected test provider, got %v", p)
	}
	if got.Model != "m" || got.Organization != "org" {
		t.Errorf("config not forwarded: %+v", got)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	expectedErr := errors.New("constructor failed")
	f.Register("failing", func(ProviderConfig) (Provider, error) {
		return nil, expectedErr
	})

	p, err := f.Create(ProviderConfig{Provider: "failing"})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected constructor error, got: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil provider on error")
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	if cfg.Provider != "openai" {
		t.Errorf("expected openai provider, got %q", cfg.Provider)
	}
	if cfg.Model != "gpt-3.5-turbo" {
		t.Errorf("expected gpt-3.5-turbo, got %q", cfg.Model)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("expected 2 minute timeout, got %v", cfg.Timeout)
	}
}

func TestKnownProviders(t *testing.T) {
	for _, name := range []string{"openai", "azure", "anthropic", "groq", "ollama"} {
		if _, ok := KnownProviders[name]; !ok {
			t.Errorf("expected provider %q to be in KnownProviders", name)
		}
	}
	if KnownProviders["openai"] != "https://api.openai.com/v1" {
		t.Errorf("unexpected openai URL %q", KnownProviders["openai"])
	}
}

// mockTestProvider records the last request it received.
type mockTestProvider struct {
	name    string
	content string
	err     error

	prompt *Prompt
	opts   *RequestOptions
}

func (m *mockTestProvider) Name() string { return m.name }

func (m *mockTestProvider) Complete(_ context.Context, p *Prompt, o *RequestOptions) (*Response, error) {
	m.prompt, m.opts = p, o
	if m.err != nil {
		return nil, m.err
	}
	return &Response{Content: m.content}, nil
}
