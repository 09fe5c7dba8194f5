package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, status int, got *capturedRequest, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "int main() {}"},
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		})
	}))
}

func TestComplete_EncodesConversation(t *testing.T) {
	var got capturedRequest
	hits := 0
	srv := newTestServer(t, http.StatusOK, &got, &hits)
	defer srv.Close()

	c, err := New(llm.ProviderConfig{Provider: "openai", APIKey: "k", Model: "gpt-3.5-turbo", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Complete(context.Background(), &llm.Prompt{
		SystemPrompt: "sys",
		Messages: []llm.Message{
			llm.UserMessage("chunk"),
			llm.AssistantMessage("ok"),
			llm.UserMessage("explain"),
		},
	}, &llm.RequestOptions{MaxTokens: llm.IntPtr(96), Temperature: llm.Float64Ptr(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "int main() {}" || resp.InputTokens != 12 || resp.OutputTokens != 5 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 96 || got.Temperature != 1 {
		t.Errorf("unexpected request params: %+v", got)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(got.Messages))
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Errorf("message %d: role %q, want %q", i, got.Messages[i].Role, role)
		}
	}
}

func TestComplete_ModelOverride(t *testing.T) {
	var got capturedRequest
	hits := 0
	srv := newTestServer(t, http.StatusOK, &got, &hits)
	defer srv.Close()

	c, _ := New(llm.ProviderConfig{Model: "default-model", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}},
		&llm.RequestOptions{Model: "gpt-4o-mini"}); err != nil {
		t.Fatal(err)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("expected override model, got %q", got.Model)
	}
	if c.Name() != "openai" {
		t.Errorf("expected default name openai, got %q", c.Name())
	}
}

func TestComplete_APIErrorIsProviderErrorWithoutRetry(t *testing.T) {
	hits := 0
	srv := newTestServer(t, http.StatusInternalServerError, nil, &hits)
	defer srv.Close()

	c, _ := New(llm.ProviderConfig{Provider: "openai", Model: "m", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), &llm.Prompt{Messages: []llm.Message{llm.UserMessage("x")}}, nil)

	var pe *llm.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *llm.ProviderError, got %T: %v", err, err)
	}
	if pe.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", pe.StatusCode)
	}
	if hits != 1 {
		t.Errorf("expected exactly one request, got %d", hits)
	}
}

func TestNew_AzureRequiresEndpoint(t *testing.T) {
	if _, err := New(llm.ProviderConfig{Provider: "azure", APIKey: "k"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
	c, err := New(llm.ProviderConfig{Provider: "azure", APIKey: "k", BaseURL: "https://example.openai.azure.com"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "azure" {
		t.Errorf("expected azure name, got %q", c.Name())
	}
}
