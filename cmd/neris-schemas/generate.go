package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run extract followed by types",
	Long: `Fetch the OpenAPI description, write the schema documents and generate
Go types from them. Equivalent to running extract and then types.

Examples:
  neris-schemas generate
  neris-schemas generate --config ci.yaml`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.Generate(ctx); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schemas in %s, types in %s\n", cfg.Schemas.Dir, cfg.Types.Output)
	return nil
}
