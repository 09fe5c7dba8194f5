// Command worker runs lodestone's Temporal activities.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/config"
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llmutil"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/server"
	temporalmod "github.com/efebarandurmaz/lodestone/internal/temporal"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("LODESTONE_CONFIG")
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.TracingConfig("lodestone-worker", version))
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()

	provider, err := llmutil.NewProvider(cfg.ProviderConfig())
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider == nil {
		return llm.ErrNoProvider
	}
	provider = observability.TraceProvider(provider, cfg.LLM.Model, metrics)

	acfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return err
	}
	opts := []analyzers.Option{analyzers.WithLogger(logger), analyzers.WithMetrics(metrics)}
	fa, err := analyzers.NewFunctionAnalyzer(provider, acfg, opts...)
	if err != nil {
		return err
	}
	pa, err := analyzers.NewProgramAnalyzer(provider, acfg, opts...)
	if err != nil {
		return err
	}
	temporalmod.SetDependencies(&temporalmod.Dependencies{Function: fa, Program: pa})

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, cfg.Analyzer.Concurrency)
	if err != nil {
		return err
	}
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)

	// Probes and metrics only; the API is served by `lodestone serve`.
	health := server.NewHealth(version)
	health.RegisterCheck("llm", server.ProviderCheck(provider.Name(), true))
	health.RegisterCheck("temporal", server.TemporalCheck(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}))
	health.SetReady(true)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", health.Handler())
	probes := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		if err := probes.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("probe server stopped", "error", err)
		}
	}()

	shutdown := server.NewShutdown(cfg.Server.ShutdownTimeout, logger)
	shutdown.Register("probes", server.PriorityHTTP, func(ctx context.Context) error {
		health.SetReady(false)
		return probes.Shutdown(ctx)
	})
	shutdown.Register("temporal-worker", server.PriorityWorker, func(context.Context) error {
		w.Stop()
		return nil
	})
	shutdown.Register("tracing", server.PriorityTracing, tp.Shutdown)

	err = shutdown.Wait(ctx)
	logger.Info("worker stopped")
	return err
}
