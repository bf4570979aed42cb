package main

import (
	"os"

	"github.com/artpar/neris-schemas/config"
	"github.com/spf13/cobra"
)

var (
	watchInitial   bool
	watchHotReload bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate types whenever a schema document changes",
	Long: `Watch the schema directory and rerun types after every change.

Changes are debounced (watch.debounce, default 250ms) so a full extract
triggers a single regeneration. A failed regeneration is logged and the
watcher keeps running.

With a config file, edits to the file (or SIGHUP) reload the type
generation settings without a restart.

Examples:
  neris-schemas watch
  neris-schemas watch --initial=false`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "generate once before waiting for changes")
	watchCmd.Flags().BoolVar(&watchHotReload, "hot-reload", true, "reload the config file on change or SIGHUP")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(cfgFile); statErr == nil && watchHotReload {
		holder, err := config.NewHolder(cfg, cfgFile, a.Logger)
		if err != nil {
			return err
		}
		defer holder.Stop()

		holder.OnChange(a.Reconfigure)
		if err := holder.WatchFile(); err != nil {
			return err
		}
		holder.WatchSignals()
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return a.Watch(ctx, watchInitial)
}
