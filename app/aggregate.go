package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
	"github.com/rs/zerolog"
)

// Header lines prepended to the generated declarations.
const (
	HeaderGenerated = "// Code generated by neris-schemas from NERIS JSON Schemas. DO NOT EDIT."
	HeaderManual    = "// Do not edit manually."
)

// DefaultCombinedID is the $id of the combined document.
const DefaultCombinedID = "https://schemas.neris.fsri.org/v1/all.json"

// AggregateService merges all persisted documents into one combined
// document and compiles it into type declarations.
type AggregateService struct {
	store          ports.SchemaStore
	writer         ports.ArtifactWriter
	compiler       ports.TypeCompiler
	dialect        string
	combinedID     string
	rootName       string
	output         string
	combinedOutput string
	options        ports.CompileOptions
	logger         zerolog.Logger
}

// AggregateConfig contains configuration for the aggregate service.
type AggregateConfig struct {
	Store    ports.SchemaStore
	Writer   ports.ArtifactWriter
	Compiler ports.TypeCompiler

	Dialect        string // $schema of the combined document
	CombinedID     string // $id of the combined document
	RootName       string // root type name handed to the compiler
	Output         string // generated declarations path
	CombinedOutput string // optional path for the resolved combined document
	Options        ports.CompileOptions

	Logger zerolog.Logger
}

// CombineStats reports what went into a combined document.
type CombineStats struct {
	Loaded  int
	Skipped []string // file names that failed to load
}

// AggregateResult summarizes one aggregation run.
type AggregateResult struct {
	CombineStats
	Output         string
	CombinedOutput string
}

// NewAggregateService creates a new aggregate service.
func NewAggregateService(cfg AggregateConfig) *AggregateService {
	s := &AggregateService{
		store:          cfg.Store,
		writer:         cfg.Writer,
		compiler:       cfg.Compiler,
		dialect:        cfg.Dialect,
		combinedID:     cfg.CombinedID,
		rootName:       cfg.RootName,
		output:         cfg.Output,
		combinedOutput: cfg.CombinedOutput,
		options:        cfg.Options,
		logger:         cfg.Logger,
	}
	if s.dialect == "" {
		s.dialect = schema.DialectDraft202012
	}
	if s.combinedID == "" {
		s.combinedID = DefaultCombinedID
	}
	if s.rootName == "" {
		s.rootName = "NERIS"
	}
	return s
}

// Combine loads every persisted document, strips identity fields, merges
// them under $defs keyed by name and rewrites persisted references into
// in-document pointers. A document that fails to load is skipped with a
// warning. Persisted documents are never modified.
func (s *AggregateService) Combine(ctx context.Context) (schema.Document, CombineStats, error) {
	var stats CombineStats

	names, err := s.store.List()
	if err != nil {
		return nil, stats, err
	}

	members := make(map[string]schema.Document, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		file := schema.FileName(name)
		data, err := s.store.Read(name)
		if err != nil {
			s.skip(&stats, file, err)
			continue
		}
		doc, err := schema.Decode(data)
		if err != nil {
			s.skip(&stats, file, err)
			continue
		}
		members[name] = schema.StripIdentity(doc)
	}
	stats.Loaded = len(members)

	combined := schema.Combine(s.dialect, s.combinedID, members)

	compact, err := schema.EncodeCompact(combined)
	if err != nil {
		return nil, stats, err
	}
	resolved, err := schema.Decode(schema.ResolvePersistedRefs(compact))
	if err != nil {
		return nil, stats, fmt.Errorf("re-parse combined schema: %w", err)
	}

	return resolved, stats, nil
}

func (s *AggregateService) skip(stats *CombineStats, file string, err error) {
	s.logger.Warn().Str("file", file).Err(err).Msg("skipping schema")
	stats.Skipped = append(stats.Skipped, file)
}

// Run combines the documents, compiles the result and writes the header
// plus declarations to the configured output path.
func (s *AggregateService) Run(ctx context.Context) (AggregateResult, error) {
	s.logger.Info().Str("dir", s.store.Dir()).Msg("generating types from schemas")

	combined, stats, err := s.Combine(ctx)
	if err != nil {
		return AggregateResult{}, err
	}
	result := AggregateResult{CombineStats: stats}

	if s.combinedOutput != "" {
		data, err := schema.Encode(combined)
		if err != nil {
			return result, err
		}
		if err := s.writer.WriteArtifact(s.combinedOutput, data); err != nil {
			return result, err
		}
		result.CombinedOutput = s.combinedOutput
		s.logger.Info().Str("path", s.combinedOutput).Msg("wrote combined schema")
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	code, err := s.compiler.Compile(combined, s.rootName, s.options)
	if err != nil {
		return result, fmt.Errorf("compile types: %w", err)
	}

	out := strings.Join([]string{HeaderGenerated, HeaderManual, "", string(code)}, "\n")
	if err := s.writer.WriteArtifact(s.output, []byte(out)); err != nil {
		return result, err
	}
	result.Output = s.output

	s.logger.Info().Str("path", s.output).Msg("wrote types")
	s.logger.Info().Int("count", stats.Loaded).Msg("generated types")

	return result, nil
}
