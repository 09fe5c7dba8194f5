package main

import (
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/config"
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llmutil"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/rewrite"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger()
	a.metrics = observability.NewMetrics()
	return nil
}

// provider returns the traced provider, or nil when none is configured.
func (a *app) provider() (llm.Provider, error) {
	p, err := llmutil.NewProvider(a.cfg.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return observability.TraceProvider(p, a.cfg.LLM.Model, a.metrics), nil
}

func (a *app) requireProvider() (llm.Provider, error) {
	p, err := a.provider()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: set llm.provider or LODESTONE_LLM_PROVIDER", llm.ErrNoProvider)
	}
	return p, nil
}

func (a *app) analyzerOptions() []analyzers.Option {
	return []analyzers.Option{analyzers.WithLogger(a.logger), analyzers.WithMetrics(a.metrics)}
}

func (a *app) programAnalyzer(p llm.Provider) (*analyzers.ProgramAnalyzer, error) {
	cfg, err := a.cfg.AnalyzerConfig()
	if err != nil {
		return nil, err
	}
	return analyzers.NewProgramAnalyzer(p, cfg, a.analyzerOptions()...)
}

func (a *app) functionAnalyzer(p llm.Provider) (*analyzers.FunctionAnalyzer, error) {
	cfg, err := a.cfg.AnalyzerConfig()
	if err != nil {
		return nil, err
	}
	return analyzers.NewFunctionAnalyzer(p, cfg, a.analyzerOptions()...)
}

func (a *app) rewriter(p llm.Provider) (*rewrite.Rewriter, error) {
	cfg, err := a.cfg.RewriteConfig()
	if err != nil {
		return nil, err
	}
	return rewrite.NewRewriter(p, cfg, rewrite.WithLogger(a.logger), rewrite.WithMetrics(a.metrics))
}
