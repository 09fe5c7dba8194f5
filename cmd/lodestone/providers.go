package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/llm"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		// Needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			names := make([]string, 0, len(llm.KnownProviders))
			for name := range llm.KnownProviders {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintln(w, "Available LLM providers:")
			fmt.Fprintln(w)
			for _, name := range names {
				url := llm.KnownProviders[name]
				if url == "" {
					url = "(set base_url to the resource endpoint)"
				}
				fmt.Fprintf(w, "  %-14s %s\n", name, url)
			}
			fmt.Fprintln(w, "  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Fprintln(w, "  none           (no provider; analysis commands refuse to run)")
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Configure in lodestone.yaml or via environment:")
			fmt.Fprintln(w, "  LODESTONE_LLM_PROVIDER=groq")
			fmt.Fprintln(w, "  LODESTONE_LLM_API_KEY=gsk_...   (OPENAI_API_KEY is used when unset)")
			fmt.Fprintln(w, "  LODESTONE_LLM_MODEL=llama-3.3-70b-versatile")
		},
	}
}
