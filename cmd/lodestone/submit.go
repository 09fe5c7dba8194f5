package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/temporal"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		symbols []string
		program bool
		noWait  bool
	)
	cmd := &cobra.Command{
		Use:   "submit <binary>",
		Short: "Run the analysis as a Temporal workflow",
		Long:  "Start AnalyzeBinaryWorkflow on the configured task queue. The binary path must be readable by the worker.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			c, err := client.Dial(client.Options{
				HostPort:  a.cfg.Temporal.Host,
				Namespace: a.cfg.Temporal.Namespace,
				Logger:    a.logger,
			})
			if err != nil {
				return fmt.Errorf("temporal client: %w", err)
			}
			defer c.Close()

			run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				ID:        "lodestone-" + uuid.NewString(),
				TaskQueue: a.cfg.Temporal.TaskQueue,
			}, temporal.AnalyzeBinaryWorkflow, temporal.BinaryInput{
				Path:            path,
				Symbols:         symbols,
				IncludeProgram:  program,
				ActivityTimeout: a.cfg.Temporal.ActivityTimeout,
			})
			if err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "started workflow %s (run %s)\n", run.GetID(), run.GetRunID())
			if noWait {
				return nil
			}

			var report analyzers.BinaryReport
			if err := run.Get(cmd.Context(), &report); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringArrayVar(&symbols, "symbol", nil, "Function to analyze (repeatable; all when omitted)")
	cmd.Flags().BoolVar(&program, "program", false, "Also summarize the whole program")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the workflow ID and exit")
	return cmd
}
