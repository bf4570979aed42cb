// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"fmt"

	"github.com/artpar/neris-schemas/domain/openapi"
	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
	"github.com/rs/zerolog"
)

// ExtractService fetches the remote OpenAPI description and persists each
// component schema as its own document.
type ExtractService struct {
	url     string
	baseURL string
	dialect string
	fetcher ports.SpecFetcher
	store   ports.SchemaStore
	logger  zerolog.Logger
}

// ExtractConfig contains configuration for the extract service.
type ExtractConfig struct {
	URL     string // remote OpenAPI description
	BaseURL string // prefix of every document $id
	Dialect string // $schema value, defaults to draft 2020-12
	Fetcher ports.SpecFetcher
	Store   ports.SchemaStore
	Logger  zerolog.Logger
}

// ExtractResult summarizes one extraction run.
type ExtractResult struct {
	OpenAPI string
	Title   string
	Version string
	Names   []string // written schema names, sorted
	Dir     string
}

// NewExtractService creates a new extract service.
func NewExtractService(cfg ExtractConfig) *ExtractService {
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = schema.DialectDraft202012
	}

	return &ExtractService{
		url:     cfg.URL,
		baseURL: cfg.BaseURL,
		dialect: dialect,
		fetcher: cfg.Fetcher,
		store:   cfg.Store,
		logger:  cfg.Logger,
	}
}

// Run performs a full regeneration. Fetch and parse failures are fatal.
// Documents already written before a later failure stay valid: every write
// is independent and idempotent.
func (s *ExtractService) Run(ctx context.Context) (ExtractResult, error) {
	s.logger.Info().Str("url", s.url).Msg("fetching openapi description")

	raw, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("fetch openapi description: %w", err)
	}

	desc, err := openapi.Parse(raw)
	if err != nil {
		return ExtractResult{}, err
	}

	result := ExtractResult{
		OpenAPI: desc.OpenAPI,
		Dir:     s.store.Dir(),
	}
	if desc.Info != nil {
		result.Title = desc.Info.Title
		result.Version = desc.Info.Version
		s.logger.Info().Msgf("OpenAPI %s - %s v%s", desc.OpenAPI, desc.Info.Title, desc.Info.Version)
	}

	names := desc.SchemaNames()
	s.logger.Info().Int("count", len(names)).Msg("extracting schemas")

	// Reject unusable names before touching the disk.
	for _, name := range names {
		if err := schema.ValidateName(name); err != nil {
			return result, err
		}
	}

	if err := s.store.Ensure(); err != nil {
		return result, err
	}

	result.Names = make([]string, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc := s.document(name, desc.Schemas[name])
		if err := s.store.Write(name, doc); err != nil {
			return result, fmt.Errorf("write schema %s: %w", name, err)
		}
		result.Names = append(result.Names, name)

		s.logger.Debug().Str("schema", name).Msg("wrote schema")
	}

	s.logger.Info().
		Int("count", len(result.Names)).
		Str("dir", result.Dir).
		Msg("wrote schemas")

	return result, nil
}

// document builds the persisted document for one component schema.
func (s *ExtractService) document(name string, body any) schema.Document {
	converted, ok := schema.RewriteSourceRefs(body).(map[string]any)
	if !ok {
		s.logger.Warn().
			Str("schema", name).
			Msgf("schema body is %T, not an object; writing identity fields only", body)
	}
	return schema.NewDocument(s.dialect, schema.IdentityURL(s.baseURL, name), converted)
}
