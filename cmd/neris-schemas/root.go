package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/neris-schemas/bootstrap"
	"github.com/artpar/neris-schemas/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "neris-schemas",
	Short: "Publish NERIS JSON Schemas and generate Go types from them",
	Long: `neris-schemas distributes the NERIS API schemas as JSON Schema documents.

Generation:
  neris-schemas extract    # Fetch the OpenAPI description, write schemas/v1/*.json
  neris-schemas types      # Combine schemas/v1/*.json and generate Go types
  neris-schemas generate   # extract followed by types

Distribution:
  neris-schemas serve      # Serve the schema documents over HTTP
  neris-schemas watch      # Regenerate types whenever a schema changes
  neris-schemas validate   # Check configuration and published documents`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}

// loadConfig loads cfgFile when present, defaults plus NERIS_* variables otherwise.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func newApp(cfg *config.Config) (*bootstrap.App, error) {
	a, err := bootstrap.New(cfg, bootstrap.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
