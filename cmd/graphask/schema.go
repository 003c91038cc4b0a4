package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the graph schema shown to the model",
	Long: `Introspect the connected Neo4j database and print the node labels,
relationship types and (:From)-[:TYPE]->(:To) patterns exactly as they are
rendered into generation prompts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, loadedConfig, appFs, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		schema, err := a.graphSchema(ctx)
		if err != nil {
			return err
		}

		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return internal.NewJSONFormatter(cmd.OutOrStdout()).PrintJSON(schema)
		}
		cmd.Print(schema.String())
		return nil
	},
}
