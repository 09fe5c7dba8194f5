package analyzers

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

const (
	chunkTurnPrefix = "This is a chunk of bytecode from a program: "
	programRequest  = "Please explain what the program does and rewrite it in C for me."
)

// BuildProgramHistory returns one user turn per chunk of data followed by the
// final instruction turn.
func BuildProgramHistory(data []byte, cfg *Config) []llm.Message {
	chunks := Chunk(data, cfg.ChunkSize, cfg.KeepRemainder)
	history := make([]llm.Message, 0, len(chunks)+1)
	for _, c := range chunks {
		history = append(history, llm.UserMessage(chunkTurnPrefix+ReprBytes(c)))
	}
	return append(history, llm.UserMessage(programRequest))
}

// ProgramAnalyzer summarizes a whole program from its raw bytes in a single
// request. Safe for concurrent use.
type ProgramAnalyzer struct {
	provider llm.Provider
	cfg      *Config
	opts     options
}

// NewProgramAnalyzer creates a program analyzer. A nil cfg selects
// DefaultConfig.
func NewProgramAnalyzer(p llm.Provider, cfg *Config, opts ...Option) (*ProgramAnalyzer, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ProgramAnalyzer{provider: p, cfg: cfg, opts: buildOptions(opts)}, nil
}

func (a *ProgramAnalyzer) Name() string { return "program" }

// Analyze sends the chunked program and returns the model's explanation.
// Provider errors are returned to the caller.
func (a *ProgramAnalyzer) Analyze(ctx context.Context, prog resource.Program) (*Analysis, error) {
	ctx, span := observability.StartAnalyzerSpan(ctx, a.Name(), prog.Name)
	defer span.End()

	history := BuildProgramHistory(prog.Data, a.cfg)
	a.opts.logger.Debug("analyzing program",
		"name", prog.Name,
		"bytes", len(prog.Data),
		"chunks", len(history)-1,
	)

	reply, err := llm.Submit(ctx, a.provider, history, a.cfg.ProgramMaxTokens, a.cfg.submitOptions())
	if err != nil {
		observability.RecordOutcome(span, string(OutcomeFailed), 0, a.cfg.ProgramMaxTokens)
		observability.RecordError(span, err)
		a.opts.record(a.Name(), OutcomeFailed)
		return nil, fmt.Errorf("analyze program %q: %w", prog.Name, err)
	}

	observability.RecordOutcome(span, string(OutcomeSent), 0, a.cfg.ProgramMaxTokens)
	a.opts.record(a.Name(), OutcomeSent)
	return &Analysis{Description: reply}, nil
}

// Report analyzes prog and returns the serializable result.
func (a *ProgramAnalyzer) Report(ctx context.Context, prog resource.Program) (*ProgramReport, error) {
	an, err := a.Analyze(ctx, prog)
	if err != nil {
		return nil, err
	}
	return &ProgramReport{
		Name:        prog.Name,
		Size:        len(prog.Data),
		Chunks:      len(Chunk(prog.Data, a.cfg.ChunkSize, a.cfg.KeepRemainder)),
		Description: an.Description,
		Code:        llm.ExtractCode(an.Description),
	}, nil
}
