package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func programMarkdown(r *analyzers.ProgramReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	fmt.Fprintf(&b, "_%d bytes in %d chunks_\n\n", r.Size, r.Chunks)
	b.WriteString(r.Description)
	b.WriteString("\n")
	return b.String()
}

func functionsMarkdown(reports []analyzers.FunctionReport) string {
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "## %s `0x%x` (%s)\n\n", r.Symbol, r.Address, r.Outcome)
		switch r.Outcome {
		case analyzers.OutcomeSent:
			b.WriteString(r.Description)
		case analyzers.OutcomeSkipped:
			fmt.Fprintf(&b, "Skipped: prompt is %d tokens.", r.PromptTokens)
		case analyzers.OutcomeFailed:
			fmt.Fprintf(&b, "Failed: %s", r.Error)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func printMarkdown(w io.Writer, md string, render bool) {
	if render {
		md = renderMarkdown(md)
	}
	fmt.Fprint(w, md)
}
