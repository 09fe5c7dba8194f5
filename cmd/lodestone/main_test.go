package main

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/elfx/elfxtest"
	"github.com/efebarandurmaz/lodestone/internal/llm"
)

func writeBinary(t *testing.T) string {
	t.Helper()
	data, _ := elfxtest.Build(elfxtest.Spec{
		Machine: elf.EM_AARCH64,
		Funcs: []elfxtest.Func{
			{Name: "main", Code: []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6}},
		},
		Rodata: []byte("Could not read the configuration file %s because of error %d\x00"),
	})
	path := filepath.Join(t.TempDir(), "prog")
	if err := os.WriteFile(path, data, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LODESTONE_LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// fakeOpenAI answers every chat completion with reply.
func fakeOpenAI(t *testing.T, reply string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
			"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("LODESTONE_LLM_PROVIDER", "custom")
	t.Setenv("LODESTONE_LLM_BASE_URL", srv.URL)
	t.Setenv("LODESTONE_LLM_API_KEY", "test")
	t.Setenv("LODESTONE_ANALYZER_TOKENIZER", "none")
}

func TestFunctionsCommand(t *testing.T) {
	out, err := run(t, "functions", writeBinary(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ADDRESS") || !strings.Contains(out, "main") {
		t.Errorf("output = %q", out)
	}
}

func TestStringsListCommand(t *testing.T) {
	out, err := run(t, "strings", "list", writeBinary(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "configuration file %s") {
		t.Errorf("output = %q", out)
	}
}

func TestAnalyzeWithoutProvider(t *testing.T) {
	t.Setenv("LODESTONE_LLM_PROVIDER", "none")
	_, err := run(t, "analyze", "function", writeBinary(t))
	if !errors.Is(err, llm.ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestAnalyzeFunctionCommand(t *testing.T) {
	fakeOpenAI(t, "It does nothing and returns.")
	out, err := run(t, "analyze", "function", "--json", "--symbol", "main", writeBinary(t))
	if err != nil {
		t.Fatal(err)
	}
	var report analyzers.BinaryReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(report.Functions) != 1 || report.Functions[0].Outcome != analyzers.OutcomeSent {
		t.Fatalf("report = %+v", report)
	}
	if report.Functions[0].Description != "It does nothing and returns." {
		t.Errorf("description = %q", report.Functions[0].Description)
	}
}

func TestAnalyzeProgramCommand(t *testing.T) {
	fakeOpenAI(t, "A tiny program.")
	out, err := run(t, "analyze", "program", writeBinary(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# prog") || !strings.Contains(out, "A tiny program.") {
		t.Errorf("output = %q", out)
	}
}

func TestStringsRewriteCommand(t *testing.T) {
	fakeOpenAI(t, "Can't read config %s, error %d. Whatever.")
	bin := writeBinary(t)
	patched := filepath.Join(t.TempDir(), "patched")

	if _, err := run(t, "strings", "rewrite", "-o", patched, bin); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(patched)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("Can't read config %s, error %d. Whatever.\x00")) {
		t.Error("rewritten string not found in patched binary")
	}
	orig, _ := os.ReadFile(bin)
	if len(orig) != len(data) {
		t.Errorf("patched size %d, want %d", len(data), len(orig))
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BinaryReport", "FunctionReport", `"skipped"`} {
		if !strings.Contains(out, want) {
			t.Errorf("schema missing %s", want)
		}
	}
}

func TestProvidersCommand(t *testing.T) {
	out, err := run(t, "providers")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "anthropic") || !strings.Contains(out, "ollama") {
		t.Errorf("output = %q", out)
	}
}
