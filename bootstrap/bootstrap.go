// Package bootstrap wires configuration into the stores, services and
// servers used by the CLI commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/artpar/neris-schemas/adapters/fsstore"
	apihttp "github.com/artpar/neris-schemas/adapters/http"
	"github.com/artpar/neris-schemas/adapters/idgen"
	"github.com/artpar/neris-schemas/adapters/metrics"
	"github.com/artpar/neris-schemas/app"
	"github.com/artpar/neris-schemas/config"
	"github.com/artpar/neris-schemas/core/typegen"
	"github.com/artpar/neris-schemas/core/watch"
	"github.com/artpar/neris-schemas/pkg/schemas"
	"github.com/artpar/neris-schemas/ports"
	"github.com/rs/zerolog"
)

// App holds the wired dependencies of one CLI invocation.
type App struct {
	Logger  zerolog.Logger
	RunID   string
	Metrics *metrics.Collector
	Store   *fsstore.Store
	Library *schemas.Library

	mu        sync.RWMutex
	config    *config.Config
	extract   *app.ExtractService
	aggregate *app.AggregateService
	verify    *app.VerifyService

	out      io.Writer
	fetcher  ports.SpecFetcher
	writer   ports.ArtifactWriter
	compiler ports.TypeCompiler
}

// Options overrides the default adapters. Zero values select the defaults.
type Options struct {
	Out      io.Writer // log output, defaults to stdout
	IDs      ports.IDGenerator
	Fetcher  ports.SpecFetcher
	Writer   ports.ArtifactWriter
	Compiler ports.TypeCompiler
}

// New creates the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	ids := opts.IDs
	if ids == nil {
		ids = idgen.RunID{}
	}

	a := &App{
		RunID:    ids.New(),
		Metrics:  metrics.New(),
		out:      out,
		fetcher:  opts.Fetcher,
		writer:   opts.Writer,
		compiler: opts.Compiler,
	}
	if a.writer == nil {
		a.writer = fsstore.FileWriter{}
	}
	if a.compiler == nil {
		a.compiler = typegen.New()
	}

	a.Reconfigure(cfg)
	return a, nil
}

// Reconfigure rebuilds the logger and services from cfg. The schema
// directory is fixed for the lifetime of the App.
func (a *App) Reconfigure(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config = cfg
	a.Logger = NewLogger(cfg.Logging, a.out).With().Str("run_id", a.RunID).Logger()

	if a.Store == nil {
		a.Store = fsstore.New(cfg.Schemas.Dir)
		a.Library = schemas.New(cfg.Schemas.Dir)
	}

	fetcher := a.fetcher
	if fetcher == nil {
		fetcher = apihttp.NewFetcher(apihttp.FetcherConfig{
			Timeout:   cfg.Source.Timeout,
			UserAgent: cfg.Source.UserAgent,
		})
	}

	a.extract = app.NewExtractService(app.ExtractConfig{
		URL:     cfg.Source.URL,
		BaseURL: cfg.Schemas.BaseURL,
		Dialect: cfg.Schemas.Dialect,
		Fetcher: fetcher,
		Store:   a.Store,
		Logger:  a.Logger,
	})

	a.aggregate = app.NewAggregateService(app.AggregateConfig{
		Store:          a.Store,
		Writer:         a.writer,
		Compiler:       a.compiler,
		Dialect:        cfg.Schemas.Dialect,
		CombinedID:     cfg.Types.CombinedID,
		RootName:       cfg.Types.RootName,
		Output:         cfg.Types.Output,
		CombinedOutput: cfg.Types.CombinedOutput,
		Options: ports.CompileOptions{
			Package:                cfg.Types.Package,
			AdditionalProperties:   cfg.Types.AdditionalProperties,
			UnreachableDefinitions: cfg.Types.EmitUnreachable(),
			BannerComment:          cfg.Types.BannerComment,
		},
		Logger: a.Logger,
	})

	a.verify = app.NewVerifyService(a.Store, cfg.Schemas.BaseURL, cfg.Schemas.Dialect, a.Logger)
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) services() (*app.ExtractService, *app.AggregateService, *app.VerifyService) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.extract, a.aggregate, a.verify
}

// Extract fetches the description and writes one document per schema.
func (a *App) Extract(ctx context.Context) (app.ExtractResult, error) {
	extract, _, _ := a.services()

	start := time.Now()
	result, err := extract.Run(ctx)
	a.Metrics.RecordExtract(len(result.Names), time.Since(start), err)
	a.flushMetrics()

	return result, err
}

// Aggregate combines the persisted documents and writes the types.
func (a *App) Aggregate(ctx context.Context) (app.AggregateResult, error) {
	_, aggregate, _ := a.services()

	start := time.Now()
	result, err := aggregate.Run(ctx)
	a.Metrics.RecordAggregate(result.Loaded, len(result.Skipped), time.Since(start), err)
	a.flushMetrics()

	return result, err
}

// Generate runs Extract followed by Aggregate.
func (a *App) Generate(ctx context.Context) error {
	if _, err := a.Extract(ctx); err != nil {
		return err
	}
	_, err := a.Aggregate(ctx)
	return err
}

// Verify checks the persisted documents.
func (a *App) Verify(ctx context.Context) (app.VerifyReport, error) {
	_, _, verify := a.services()
	return verify.Run(ctx)
}

// Watch regenerates types whenever the schema directory changes, until ctx
// is done.
func (a *App) Watch(ctx context.Context, initial bool) error {
	cfg := a.Config()

	if err := a.Store.Ensure(); err != nil {
		return err
	}

	w := watch.New(watch.Config{
		Dir:      a.Store.Dir(),
		Debounce: cfg.Watch.Debounce,
		Initial:  initial,
		Run: func(ctx context.Context) error {
			_, err := a.Aggregate(ctx)
			return err
		},
		Logger: a.Logger,
	})
	return w.Run(ctx)
}

// Handler builds the schema distribution router.
func (a *App) Handler() http.Handler {
	_, aggregate, _ := a.services()
	h := apihttp.NewSchemaHandler(a.Library, aggregate, a.Logger)
	return apihttp.NewRouter(h, a.Logger, apihttp.RouterConfig{Metrics: a.Metrics})
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", server.Addr).
			Str("dir", a.Store.Dir()).
			Msg("starting schema server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown error")
		return err
	}
	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) flushMetrics() {
	path := a.Config().Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.Metrics.WriteTextfile(path); err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("write metrics textfile")
	}
}

// NewLogger creates a logger writing to w in the configured format.
// An unknown level falls back to info.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
