package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			tp, err := observability.InitTracing(ctx, a.cfg.TracingConfig("lodestone", version))
			if err != nil {
				return err
			}

			deps := server.Deps{Metrics: a.metrics, Logger: a.logger, ProviderName: a.cfg.LLM.Provider}
			p, err := a.provider()
			if err != nil {
				return err
			}
			if p == nil {
				a.logger.Warn("no LLM provider configured, analysis endpoints will answer 503")
			} else {
				if deps.Program, err = a.programAnalyzer(p); err != nil {
					return err
				}
				if deps.Function, err = a.functionAnalyzer(p); err != nil {
					return err
				}
				if deps.Rewriter, err = a.rewriter(p); err != nil {
					return err
				}
			}

			srv := server.New(server.Config{
				Addr:           a.cfg.Server.Addr,
				RequestTimeout: a.cfg.Server.RequestTimeout,
				MaxBodyBytes:   a.cfg.Server.MaxBodyBytes,
				Version:        version,
			}, deps)

			shutdown := server.NewShutdown(a.cfg.Server.ShutdownTimeout, a.logger)
			shutdown.Register("http", server.PriorityHTTP, srv.Shutdown)
			shutdown.Register("tracing", server.PriorityTracing, tp.Shutdown)

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()

			select {
			case err := <-errc:
				// Listener failed before any signal; still flush tracing.
				_ = tp.Shutdown(context.Background())
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			if err := shutdown.Run(); err != nil {
				return err
			}
			return <-errc
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
