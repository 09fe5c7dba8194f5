package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
)

func reportSchema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	return json.MarshalIndent(reflector.Reflect(&analyzers.BinaryReport{}), "", "  ")
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "schema",
		Short:             "Print the JSON schema of analysis reports",
		Hidden:            true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			bts, err := reportSchema()
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
