package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	typesOutput         string
	typesPackage        string
	typesCombinedOutput string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Generate Go types from the published schema documents",
	Long: `Combine every document in the schema directory into a single schema
under $defs and compile it into Go type declarations.

Identity fields ($schema, $id) of each document are dropped and ./<Name>.json
references become #/$defs/<Name>. A document that cannot be read or parsed
is skipped with a warning.

Examples:
  neris-schemas types
  neris-schemas types --output internal/neris/types.go --package neris
  neris-schemas types --combined-output dist/all.json`,
	RunE: runTypes,
}

func init() {
	rootCmd.AddCommand(typesCmd)

	typesCmd.Flags().StringVarP(&typesOutput, "output", "o", "", "generated file path (overrides types.output)")
	typesCmd.Flags().StringVar(&typesPackage, "package", "", "generated package name (overrides types.package)")
	typesCmd.Flags().StringVar(&typesCombinedOutput, "combined-output", "", "also write the combined schema here")
}

func runTypes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if typesOutput != "" {
		cfg.Types.Output = typesOutput
	}
	if typesPackage != "" {
		cfg.Types.Package = typesPackage
	}
	if typesCombinedOutput != "" {
		cfg.Types.CombinedOutput = typesCombinedOutput
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := a.Aggregate(ctx)
	if err != nil {
		return fmt.Errorf("generate types: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated types for %d schemas in %s\n", result.Loaded, result.Output)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d unreadable schemas: %v\n", len(result.Skipped), result.Skipped)
	}
	return nil
}
