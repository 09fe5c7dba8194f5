package analyzers

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

const functionPromptTemplate = `You are a security researcher capable of reverse engineering code from assembly code.
Below is the assembly code and associated symbol name from a binary that I am trying to reverse engineer.
%s:
%s
Please do the following:
	Summarize this assembly code and explain your reasoning as much as possible.
	WITHOUT USING INLINE ASSEMBLY OR THE __asm__ FUNCTION, decompile it into equivalent pseudo-C code with high-level comments.
	Guess the closest matching library function based on function signature.
	And finally, suggest suitable names for the function in question.`

// FunctionPrompt builds the single instructional turn for a function.
func FunctionPrompt(symbol, assembly string) string {
	return fmt.Sprintf(functionPromptTemplate, symbol, assembly)
}

// FunctionAnalyzer explains one disassembled function per call, guarding the
// model's context window. Safe for concurrent use.
type FunctionAnalyzer struct {
	provider llm.Provider
	cfg      *Config
	opts     options
}

// NewFunctionAnalyzer creates a function analyzer. A nil cfg selects
// DefaultConfig.
func NewFunctionAnalyzer(p llm.Provider, cfg *Config, opts ...Option) (*FunctionAnalyzer, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FunctionAnalyzer{provider: p, cfg: cfg, opts: buildOptions(opts)}, nil
}

func (a *FunctionAnalyzer) Name() string { return "function" }

// Analyze explains block. It never returns an error: an oversized prompt
// yields OutcomeSkipped without a request and a provider failure yields
// OutcomeFailed after logging the symbol.
func (a *FunctionAnalyzer) Analyze(ctx context.Context, block resource.ComplexBlock) Result {
	ctx, span := observability.StartAnalyzerSpan(ctx, a.Name(), block.Symbol)
	defer span.End()

	res := a.analyze(ctx, block)
	observability.RecordOutcome(span, string(res.Outcome), res.PromptTokens, res.MaxTokens)
	observability.RecordError(span, res.Err)
	a.opts.record(a.Name(), res.Outcome)
	return res
}

func (a *FunctionAnalyzer) analyze(ctx context.Context, block resource.ComplexBlock) Result {
	log := a.opts.logger.With("symbol", block.Symbol)

	prompt := FunctionPrompt(block.Symbol, block.Assembly)
	budget := a.cfg.BudgetFor(prompt)
	if budget.Skip {
		log.Info("prompt exceeds token budget, skipped",
			"prompt_tokens", budget.PromptTokens,
			"ceiling", a.cfg.PromptCeiling,
		)
		return Result{Outcome: OutcomeSkipped, PromptTokens: budget.PromptTokens}
	}
	if !budget.Counted {
		log.Debug("no tokenizer for model, using fixed output cap", "max_tokens", budget.MaxTokens)
	}

	history := []llm.Message{llm.UserMessage(prompt)}
	reply, err := llm.Submit(ctx, a.provider, history, budget.MaxTokens, a.cfg.submitOptions())
	if err != nil {
		log.Error("Exception occurred, skipped function", "error", err)
		return Result{
			Outcome:      OutcomeFailed,
			PromptTokens: budget.PromptTokens,
			MaxTokens:    budget.MaxTokens,
			Err:          err,
		}
	}

	return Result{
		Outcome:      OutcomeSent,
		Analysis:     &Analysis{Description: reply},
		PromptTokens: budget.PromptTokens,
		MaxTokens:    budget.MaxTokens,
	}
}
