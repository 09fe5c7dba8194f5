package rewrite

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/logging"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

const sentence = "Unable to open the configuration file %s, error code %d was returned"

func newRewriter(t *testing.T, p llm.Provider, cfg *Config, opts ...Option) *Rewriter {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	r, err := NewRewriter(p, cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNewRewriter_Errors(t *testing.T) {
	if _, err := NewRewriter(nil, testConfig()); !errors.Is(err, llm.ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
	cfg := testConfig()
	cfg.Voice = VoiceCustom
	if _, err := NewRewriter(&scriptedProvider{}, cfg); !errors.Is(err, ErrInvalidVoice) {
		t.Errorf("expected ErrInvalidVoice, got %v", err)
	}
	cfg = testConfig()
	cfg.MaxRetries = -1
	if _, err := NewRewriter(&scriptedProvider{}, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRewrite_ShortStringUntouched(t *testing.T) {
	p := &scriptedProvider{replies: []string{"x"}}
	res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), "short %d")
	if res.Status != StatusShort || res.Changed() {
		t.Errorf("unexpected result %+v", res)
	}
	if p.callCount() != 0 {
		t.Errorf("expected no calls, got %d", p.callCount())
	}
}

func TestRewrite_Sentence(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Ugh, can't open %s, code %d. Obviously."}}
	m := observability.NewMetrics()
	res := newRewriter(t, p, testConfig(), WithMetrics(m)).Rewrite(context.Background(), sentence)

	if res.Status != StatusRewritten || !res.Changed() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Rewritten != "Ugh, can't open %s, code %d. Obviously." {
		t.Errorf("rewritten = %q", res.Rewritten)
	}
	call := p.call(0)
	if got := *call.opts.MaxTokens; got != 20 {
		t.Errorf("first max tokens = %d, want 2x token count (20)", got)
	}
	msg := call.prompt.Messages[0].Content
	for _, want := range []string{"You are a sassy person.", "more sassy: \n" + sentence, DefaultSentenceRule} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
	var out bytes.Buffer
	m.WriteTo(&out)
	if !strings.Contains(out.String(), `lodestone_rewrites_total{result="rewritten"} 1`) {
		t.Error("rewrite not counted")
	}
}

func TestRewrite_AsksForShorterVersion(t *testing.T) {
	long := sentence + " and that is really just terribly sad for everyone involved"
	p := &scriptedProvider{replies: []string{long, "No config %s for you, code %d."}}
	res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), sentence)

	if res.Status != StatusRewritten || res.Retries != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if p.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", p.callCount())
	}
	second := p.call(1)
	msgs := second.prompt.Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(msgs))
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[1].Content != long {
		t.Errorf("assistant turn = %+v", msgs[1])
	}
	if msgs[2].Content != "Make it shorter." {
		t.Errorf("correction = %q", msgs[2].Content)
	}
	if got := *second.opts.MaxTokens; got != 2*len(sentence) {
		t.Errorf("retry max tokens = %d, want %d", got, 2*len(sentence))
	}
}

func TestRewrite_RejectsWrongSpecifiers(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.WithJSON(true), logging.WithWriter(&logs), logging.WithLevel(slog.LevelDebug))
	p := &scriptedProvider{replies: []string{"Can't open %d, code %s."}}
	res := newRewriter(t, p, testConfig(), WithLogger(logger)).Rewrite(context.Background(), sentence)

	if res.Status != StatusRejected || res.Changed() {
		t.Fatalf("unexpected result %+v", res)
	}
	// first request plus retries 1..MaxRetries+1
	if want := DefaultMaxRetries + 2; p.callCount() != want {
		t.Errorf("calls = %d, want %d", p.callCount(), want)
	}
	last := p.call(p.callCount() - 1).prompt.Messages
	if got := last[len(last)-1].Content; got != fixSpecifiers {
		t.Errorf("correction = %q", got)
	}
	if !strings.Contains(logs.String(), "Unable to request valid specifiers") {
		t.Errorf("missing warning in logs: %s", logs.String())
	}
}

func TestRewrite_Identifier(t *testing.T) {
	ident := "configuration_loader_initialization_failure_handler"
	p := &scriptedProvider{replies: []string{"Fine: sassy_loader_fail whatever"}}
	res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), ident)

	if res.Rewritten != "sassy_loader_fail" {
		t.Errorf("rewritten = %q, want longest word", res.Rewritten)
	}
	if msg := p.call(0).prompt.Messages[0].Content; !strings.Contains(msg, DefaultIdentifierRule) {
		t.Errorf("identifier rule missing from prompt:\n%s", msg)
	}
}

func TestRewrite_StripsAndTruncates(t *testing.T) {
	text := strings.Repeat("plain words ", 5)

	p := &scriptedProvider{replies: []string{strings.Repeat("z", len(text))}}
	res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), text)
	if res.Status != StatusRewritten || res.Retries != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Rewritten) != len(text)-1 {
		t.Errorf("len = %d, want %d", len(res.Rewritten), len(text)-1)
	}

	p = &scriptedProvider{replies: []string{"caf\u00e9 \x01words"}}
	res = newRewriter(t, p, testConfig()).Rewrite(context.Background(), text)
	if res.Rewritten != "caf words" {
		t.Errorf("rewritten = %q, want non-printable characters removed", res.Rewritten)
	}
}

func TestRewrite_EmptyReplyLeavesStringAlone(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 4)
	for _, reply := range []string{"", "   \n", "\x01\x02"} {
		p := &scriptedProvider{replies: []string{reply}}
		res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), text)
		if res.Status != StatusRejected || res.Changed() || p.callCount() != 1 {
			t.Errorf("reply %q: unexpected result %+v after %d calls", reply, res, p.callCount())
		}

		res.Offset = 2
		image := []byte("xx" + text + "\x00")
		n, err := Apply(image, []Result{res})
		if err != nil || n != 0 || string(image[2:len(image)-1]) != text {
			t.Errorf("reply %q: image patched (%d, %v): %q", reply, n, err, image)
		}
	}
}

func TestRewrite_CountsCharactersNotBytes(t *testing.T) {
	// 4-byte runes: longer than sentence in bytes, shorter in characters.
	reply := "No config %s, code %d " + strings.Repeat("\U0001F600", 12)
	if len(reply) <= len(sentence) {
		t.Fatalf("test reply must exceed the original in bytes")
	}
	p := &scriptedProvider{replies: []string{reply, "unused %s %d"}}
	res := newRewriter(t, p, testConfig()).Rewrite(context.Background(), sentence)

	if p.callCount() != 1 || res.Retries != 0 {
		t.Fatalf("expected no shorter-request round, got %d calls", p.callCount())
	}
	if res.Status != StatusRewritten || res.Rewritten != "No config %s, code %d " {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRewrite_ProviderError(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.WithJSON(true), logging.WithWriter(&logs))
	p := &scriptedProvider{err: &llm.ProviderError{Provider: "scripted", StatusCode: 500, Err: errors.New("boom")}}
	res := newRewriter(t, p, testConfig(), WithLogger(logger)).Rewrite(context.Background(), sentence)

	if res.Status != StatusFailed || !llm.IsProviderError(res.Err) {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(logs.String(), "configuration file") {
		t.Errorf("expected original text in log: %s", logs.String())
	}
}

func TestRewriteAll_PreservesOrder(t *testing.T) {
	strs := []resource.AsciiString{
		{Offset: 0x10, Text: "tiny"},
		{Offset: 0x40, Text: sentence},
	}
	p := &scriptedProvider{replies: []string{"Can't open %s, code %d."}}
	results, err := newRewriter(t, p, testConfig()).RewriteAll(context.Background(), strs, 4)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != StatusShort || results[0].Offset != 0x10 {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Status != StatusRewritten || results[1].Offset != 0x40 {
		t.Errorf("results[1] = %+v", results[1])
	}
}
