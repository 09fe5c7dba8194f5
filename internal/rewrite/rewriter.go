package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

const (
	promptTemplate = "You are a %s. I will send a message and you will respond by making the text " +
		"of the message more %s. The text you generate must be shorter or equal to the length to " +
		"the length of the original message. It is EXTREMELY important that your version is " +
		"shorter than the original and contains only ASCII characters. %sIf you understand, make " +
		"the following message more %s: \n%s"

	fixSpecifiers = "Use the same format specifiers in the same order as the original."
	makeShorter   = "Make it shorter."
)

// Status is the result of rewriting one string.
type Status string

const (
	StatusRewritten Status = "rewritten"
	StatusShort     Status = "short"    // below MinLength, not sent
	StatusRejected  Status = "rejected" // no usable reply: wrong specifiers or empty
	StatusFailed    Status = "failed"
)

// Result describes one rewrite. Offset is copied from the source string by
// RewriteAll.
type Result struct {
	Offset    int64  `json:"offset"`
	Original  string `json:"original"`
	Rewritten string `json:"rewritten,omitempty"`
	Status    Status `json:"status"`
	Retries   int    `json:"retries"`
	Err       error  `json:"-"`
}

// Changed reports whether the result carries a replacement that differs from
// the original.
func (r Result) Changed() bool {
	return r.Status == StatusRewritten && r.Rewritten != r.Original
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// WithMetrics counts results into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Rewriter) { r.metrics = m }
}

// Rewriter rewrites strings in one voice. Safe for concurrent use.
type Rewriter struct {
	provider llm.Provider
	cfg      *Config
	persona  Persona
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRewriter creates a rewriter. A nil cfg selects DefaultConfig.
func NewRewriter(p llm.Provider, cfg *Config, opts ...Option) (*Rewriter, error) {
	if p == nil {
		return nil, llm.ErrNoProvider
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	persona, _ := cfg.Voice.Resolve(cfg.Custom)
	r := &Rewriter{provider: p, cfg: cfg, persona: persona}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Prompt builds the opening request for text.
func (r *Rewriter) Prompt(text string) string {
	rule := r.cfg.SentenceRule
	if isIdentifier(text) {
		rule = r.cfg.IdentifierRule
	}
	return fmt.Sprintf(promptTemplate, r.persona.Noun, r.persona.Adjective, rule, r.persona.Adjective, text)
}

// Rewrite asks the model for a new version of text that is no longer than
// the original and keeps its printf conversions. Errors are reported in the
// result, never returned.
func (r *Rewriter) Rewrite(ctx context.Context, text string) Result {
	ctx, span := observability.StartRewriteSpan(ctx, string(r.cfg.Voice), len(text))
	defer span.End()

	res := r.rewrite(ctx, text)
	observability.RecordError(span, res.Err)
	if r.metrics != nil {
		r.metrics.RecordRewrite(string(res.Status))
	}
	return res
}

func (r *Rewriter) rewrite(ctx context.Context, text string) Result {
	res := Result{Original: text}
	if len(text) < r.cfg.MinLength {
		res.Status = StatusShort
		return res
	}
	log := r.logger.With("text", text)

	history := []llm.Message{llm.UserMessage(r.Prompt(text))}
	reply, err := llm.Submit(ctx, r.provider, history, 2*r.cfg.tokens(text), r.cfg.submitOptions())
	if err != nil {
		log.Error("Exception occurred, skipped", "error", err)
		return Result{Original: text, Status: StatusFailed, Err: err}
	}
	candidate := r.candidate(text, reply)
	valid := SameSpecifiers(text, candidate)

	for (tooLong(text, candidate) || !valid) && res.Retries <= r.cfg.MaxRetries {
		res.Retries++
		correction := makeShorter
		if !valid {
			correction = fixSpecifiers
		}
		history = append(history, llm.AssistantMessage(reply), llm.UserMessage(correction))
		reply, err = llm.Submit(ctx, r.provider, history, 2*len(text), r.cfg.submitOptions())
		if err != nil {
			log.Error("Exception occurred, skipped", "error", err, "retries", res.Retries)
			res.Status, res.Err = StatusFailed, err
			return res
		}
		candidate = r.candidate(text, reply)
		valid = SameSpecifiers(text, candidate)
	}

	if !valid {
		log.Warn("Unable to request valid specifiers", "retries", res.Retries)
		res.Status = StatusRejected
		return res
	}

	candidate = printable(candidate)
	if limit := len(text) - 1; len(candidate) > limit {
		candidate = candidate[:limit]
	}
	if strings.TrimSpace(candidate) == "" {
		log.Warn("Empty reply, string left unchanged", "retries", res.Retries)
		res.Status = StatusRejected
		return res
	}
	// Truncation can cut a conversion in half.
	if !SameSpecifiers(text, candidate) {
		log.Warn("Truncation broke format specifiers", "candidate", candidate)
		res.Status = StatusRejected
		return res
	}
	res.Rewritten, res.Status = candidate, StatusRewritten
	return res
}

// candidate reduces a reply to the text that would be patched in.
func (r *Rewriter) candidate(text, reply string) string {
	if !isIdentifier(text) {
		return reply
	}
	var longest string
	for _, w := range strings.Fields(reply) {
		if len(w) > len(longest) {
			longest = w
		}
	}
	return longest
}

// RewriteAll rewrites every string with at most concurrency requests in
// flight. Results keep the order of strs.
func (r *Rewriter) RewriteAll(ctx context.Context, strs []resource.AsciiString, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(strs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, s := range strs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := r.Rewrite(gctx, s.Text)
			res.Offset = s.Offset
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// tooLong compares lengths in characters, so multi-byte runes the printable
// filter drops later count once.
func tooLong(text, candidate string) bool {
	return utf8.RuneCountInString(candidate) > utf8.RuneCountInString(text)
}

func isIdentifier(text string) bool {
	return !strings.Contains(text, " ")
}

// printable drops everything outside printable ASCII and ASCII whitespace.
func printable(s string) string {
	return strings.Map(func(c rune) rune {
		if (c >= 0x20 && c <= 0x7e) || strings.ContainsRune("\t\n\r\v\f", c) {
			return c
		}
		return -1
	}, s)
}
