// Command lodestone asks an LLM to explain compiled programs.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lodestone",
		Short:         "LLM-assisted binary analysis",
		Long:          "Summarize programs, explain disassembled functions and rewrite embedded strings with an LLM.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("LODESTONE_CONFIG"), "Config file path (yaml, toml or json)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newFunctionsCmd(a),
		newStringsCmd(a),
		newProvidersCmd(),
		newServeCmd(a),
		newSubmitCmd(a),
		newSchemaCmd(),
	)
	return root
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
