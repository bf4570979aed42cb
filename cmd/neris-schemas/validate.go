package main

import (
	"context"
	"fmt"
	"os"
	"time"

	apihttp "github.com/artpar/neris-schemas/adapters/http"
	"github.com/artpar/neris-schemas/domain/openapi"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and published schema documents",
	Long: `Validate the configuration and the schema directory.

Checks:
  - Config file syntax and values (when a config file is present)
  - Every document parses and carries the expected $schema and $id
  - Every ./<Name>.json reference points at an existing document
  - The OpenAPI description is reachable and parses (--check-source)

Examples:
  neris-schemas validate
  neris-schemas validate --check-source`,
	RunE: runValidate,
}

var validateCheckSource bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckSource, "check-source", false, "fetch and parse the OpenAPI description")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)
	} else {
		fmt.Fprintf(out, "No %s, validating defaults and environment...\n\n", cfgFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	fmt.Fprintf(out, "  %s Source: %s\n", checkMark, cfg.Source.URL)
	fmt.Fprintf(out, "  %s Schemas: %s (%s)\n", checkMark, cfg.Schemas.Dir, cfg.Schemas.BaseURL)
	fmt.Fprintf(out, "  %s Types: %s (package %s)\n", checkMark, cfg.Types.Output, cfg.Types.Package)

	if validateCheckSource {
		if err := checkSource(cmd.Context(), cfg.Source.URL); err != nil {
			fmt.Fprintf(out, "  %s Source reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Source reachable\n", checkMark)
		}
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	report, err := a.Verify(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "  %s Schema directory readable\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Schema directory readable (%d documents)\n", checkMark, report.Checked)

	if !report.OK() {
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "  %s %s\n", crossMark, issue)
		}
		return fmt.Errorf("%d problems found in %s", len(report.Issues), cfg.Schemas.Dir)
	}
	fmt.Fprintf(out, "  %s Documents consistent\n", checkMark)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Schemas are valid.")
	return nil
}

func checkSource(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data, err := apihttp.NewFetcher(apihttp.FetcherConfig{}).Fetch(ctx, url)
	if err != nil {
		return err
	}
	desc, err := openapi.Parse(data)
	if err != nil {
		return err
	}
	if len(desc.Schemas) == 0 {
		return fmt.Errorf("no component schemas in description")
	}
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
