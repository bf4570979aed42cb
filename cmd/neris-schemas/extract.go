package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	extractURL     string
	extractDir     string
	extractBaseURL string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch the OpenAPI description and write one JSON Schema per component",
	Long: `Fetch the NERIS OpenAPI description and write every component schema to
its own JSON Schema document.

Each document gets a $schema (draft 2020-12) and a $id of
<base_url>/<Name>.json. References of the form #/components/schemas/<Name>
are rewritten to ./<Name>.json so the documents reference each other.

Existing documents are overwritten. Documents for schemas that disappeared
from the description are left in place.

Examples:
  neris-schemas extract
  neris-schemas extract --url https://api.neris.fsri.org/v1/openapi.yaml
  NERIS_OPENAPI_URL=http://localhost:8000/openapi.yaml neris-schemas extract`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractURL, "url", "", "OpenAPI description URL (overrides source.url)")
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "schema output directory (overrides schemas.dir)")
	extractCmd.Flags().StringVar(&extractBaseURL, "base-url", "", "$id prefix (overrides schemas.base_url)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractURL != "" {
		cfg.Source.URL = extractURL
	}
	if extractDir != "" {
		cfg.Schemas.Dir = extractDir
	}
	if extractBaseURL != "" {
		cfg.Schemas.BaseURL = extractBaseURL
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := a.Extract(ctx)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d schemas to %s\n", len(result.Names), result.Dir)
	return nil
}
