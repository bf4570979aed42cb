package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	serveHost     string
	servePort     int
	serveGenerate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the schema documents over HTTP",
	Long: `Start an HTTP server that publishes the schema documents.

Routes:
  GET /v1/              sorted JSON array of schema names
  GET /v1/<Name>.json   the document as written by extract
  GET /v1/all.json      the combined document with every schema under $defs
  GET /healthz          liveness
  GET /metrics          Prometheus metrics

Documents are read from disk on every request, so a concurrent extract is
picked up without a restart.

Examples:
  neris-schemas serve
  neris-schemas serve --port 9000
  neris-schemas serve --generate`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveGenerate, "generate", false, "run extract and types before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if serveGenerate {
		if err := a.Generate(ctx); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}

	return a.Serve(ctx)
}
