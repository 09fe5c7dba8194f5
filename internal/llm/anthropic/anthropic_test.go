package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

func okHandler(captured *map[string]any, headers *http.Header) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if headers != nil {
			*headers = r.Header
		}
		if captured != nil {
			b, _ := io.ReadAll(r.Body)
			json.Unmarshal(b, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"type": "text", "text": "void f(void) {}"}},
			"model":       "claude-3-haiku",
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 100, "output_tokens": 50},
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(llm.ProviderConfig{APIKey: "k", Model: "m"})
	if c.baseURL != defaultBaseURL {
		t.Errorf("expected default baseURL, got %q", c.baseURL)
	}
	if c.Name() != "anthropic" {
		t.Errorf("unexpected name %q", c.Name())
	}

	c = New(llm.ProviderConfig{BaseURL: "https://proxy.local/v1/"})
	if c.baseURL != "https://proxy.local/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
}

func TestComplete_Headers(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(okHandler(nil, &headers))
	defer srv.Close()

	c := New(llm.ProviderConfig{APIKey: "secret", Model: "m", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}}, nil); err != nil {
		t.Fatal(err)
	}
	if headers.Get("x-api-key") != "secret" {
		t.Errorf("x-api-key = %q", headers.Get("x-api-key"))
	}
	if headers.Get("anthropic-version") != apiVersion {
		t.Errorf("anthropic-version = %q", headers.Get("anthropic-version"))
	}
}

func TestComplete_FoldsSystemTurns(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(okHandler(&body, nil))
	defer srv.Close()

	c := New(llm.ProviderConfig{Model: "m", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "first",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "second"},
			llm.UserMessage("chunk"),
		},
	}, &llm.RequestOptions{MaxTokens: llm.IntPtr(96), Temperature: llm.Float64Ptr(1), StopSeqs: []string{"END"}})
	if err != nil {
		t.Fatal(err)
	}

	if body["system"] != "first\n\nsecond" {
		t.Errorf("system = %v", body["system"])
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected only the user turn, got %d", len(msgs))
	}
	if body["max_tokens"] != float64(96) || body["temperature"] != float64(1) {
		t.Errorf("unexpected options in body: %v", body)
	}
	if stops := body["stop_sequences"].([]any); len(stops) != 1 {
		t.Errorf("stop_sequences = %v", stops)
	}
}

func TestComplete_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(okHandler(nil, nil))
	defer srv.Close()

	c := New(llm.ProviderConfig{Model: "m", BaseURL: srv.URL})
	resp, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "void f(void) {}" || resp.StopReason != "end_turn" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("unexpected usage %+v", resp)
	}
}

func TestComplete_Non200IsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer srv.Close()

	c := New(llm.ProviderConfig{Model: "m", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}}, nil)

	var pe *llm.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *llm.ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", pe.StatusCode)
	}
}

func TestComplete_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	c := New(llm.ProviderConfig{Model: "m", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}}, nil)
	if !llm.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
