package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/elfx"
)

func newFunctionsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "functions <binary>",
		Short: "List the functions of an ELF binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := elfx.Open(args[0])
			if err != nil {
				return err
			}
			defer im.Close()

			fns := im.Functions()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), fns)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tSIZE\tNAME")
			for _, fn := range fns {
				fmt.Fprintf(tw, "0x%x\t%d\t%s\n", fn.Addr, fn.Size, fn.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
