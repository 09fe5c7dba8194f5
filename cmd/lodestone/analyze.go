package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/elfx"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask the model to explain a binary",
	}
	cmd.AddCommand(newAnalyzeProgramCmd(a), newAnalyzeFunctionCmd(a))
	return cmd
}

func newAnalyzeProgramCmd(a *app) *cobra.Command {
	var (
		render   bool
		asJSON   bool
		keepTail bool
	)
	cmd := &cobra.Command{
		Use:   "program <binary>",
		Short: "Summarize a whole program from its raw bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.requireProvider()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("keep-remainder") {
				a.cfg.Analyzer.KeepRemainder = keepTail
			}
			pa, err := a.programAnalyzer(p)
			if err != nil {
				return err
			}
			im, err := elfx.Open(args[0])
			if err != nil {
				return err
			}
			defer im.Close()

			report, err := pa.Report(cmd.Context(), im.Program())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printMarkdown(cmd.OutOrStdout(), programMarkdown(report), render)
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the answer as styled markdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&keepTail, "keep-remainder", false, "Also send the final partial chunk")
	return cmd
}

func newAnalyzeFunctionCmd(a *app) *cobra.Command {
	var (
		symbols     []string
		concurrency int
		timeout     time.Duration
		render      bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "function <binary>",
		Short: "Explain disassembled functions one request at a time",
		Long: "Disassemble each selected function (all functions when no --symbol is given) " +
			"and ask the model to explain it. Functions whose prompt exceeds the token budget are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.requireProvider()
			if err != nil {
				return err
			}
			fa, err := a.functionAnalyzer(p)
			if err != nil {
				return err
			}
			im, err := elfx.Open(args[0])
			if err != nil {
				return err
			}
			defer im.Close()

			blocks, err := im.ComplexBlocks(symbols...)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.Analyzer.Concurrency
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			reports, err := fa.AnalyzeAll(ctx, blocks, concurrency)
			if err != nil {
				return err
			}

			report := analyzers.BinaryReport{Path: args[0], Arch: im.Arch(), Functions: reports}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printMarkdown(cmd.OutOrStdout(), functionsMarkdown(reports), render)
			counts := report.Counts()
			fmt.Fprintf(cmd.ErrOrStderr(), "%d sent, %d skipped, %d failed\n",
				counts[analyzers.OutcomeSent], counts[analyzers.OutcomeSkipped], counts[analyzers.OutcomeFailed])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&symbols, "symbol", nil, "Function to analyze (repeatable; demangled or raw name)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Requests in flight")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall deadline (0 for none)")
	cmd.Flags().BoolVar(&render, "render", false, "Render the answers as styled markdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
