package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/elfx"
	"github.com/efebarandurmaz/lodestone/internal/rewrite"
)

func newStringsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strings",
		Short: "Inspect and rewrite read-only strings",
	}
	cmd.AddCommand(newStringsListCmd(a), newStringsRewriteCmd(a))
	return cmd
}

func newStringsListCmd(a *app) *cobra.Command {
	var minLen int
	cmd := &cobra.Command{
		Use:   "list <binary>",
		Short: "List printable strings in .rodata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := elfx.Open(args[0])
			if err != nil {
				return err
			}
			defer im.Close()
			for _, s := range im.Strings(minLen) {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%x\t%q\n", s.Offset, s.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minLen, "min-length", 4, "Shortest string to list")
	return cmd
}

func newStringsRewriteCmd(a *app) *cobra.Command {
	var (
		out         string
		voice       string
		minLen      int
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "rewrite <binary>",
		Short: "Rewrite long strings in a voice and write a patched copy",
		Long: "Each string of at least --min-length bytes is rewritten by the model. Replacements " +
			"never grow the string and keep its printf conversions; anything else is left alone.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("voice") {
				a.cfg.Rewrite.Voice = voice
			}
			if cmd.Flags().Changed("min-length") {
				a.cfg.Rewrite.MinLength = minLen
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.Rewrite.Concurrency
			}
			p, err := a.requireProvider()
			if err != nil {
				return err
			}
			rw, err := a.rewriter(p)
			if err != nil {
				return err
			}
			im, err := elfx.Open(args[0])
			if err != nil {
				return err
			}
			defer im.Close()

			results, err := rw.RewriteAll(cmd.Context(), im.Strings(max(a.cfg.Rewrite.MinLength, 1)), concurrency)
			if err != nil {
				return err
			}
			image := append([]byte(nil), im.All...)
			patched, err := rewrite.Apply(image, results)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, image, 0o755); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			for _, r := range results {
				if r.Changed() {
					fmt.Fprintf(cmd.OutOrStdout(), "0x%x\t%q\n\t-> %q\n", r.Offset, r.Original, r.Rewritten)
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "patched %d of %d strings into %s\n", patched, len(results), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Where to write the patched binary")
	cmd.Flags().StringVar(&voice, "voice", string(rewrite.VoiceSassy), "sassy, passive-aggressive, pirate or custom")
	cmd.Flags().IntVar(&minLen, "min-length", rewrite.DefaultMinLength, "Shortest string to rewrite")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Requests in flight")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every result as JSON")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
