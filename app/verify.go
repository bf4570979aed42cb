package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
	"github.com/rs/zerolog"
)

// Issue describes one problem found in the schema directory.
type Issue struct {
	File    string
	Message string
}

func (i Issue) String() string {
	return i.File + ": " + i.Message
}

// VerifyReport summarizes a directory check.
type VerifyReport struct {
	Checked int
	Issues  []Issue
}

// OK reports whether no issues were found.
func (r VerifyReport) OK() bool {
	return len(r.Issues) == 0
}

// VerifyService checks that persisted documents are loadable, carry the
// expected identity fields and only reference documents that exist.
type VerifyService struct {
	store   ports.SchemaStore
	baseURL string
	dialect string
	logger  zerolog.Logger
}

// NewVerifyService creates a new verify service.
func NewVerifyService(store ports.SchemaStore, baseURL, dialect string, logger zerolog.Logger) *VerifyService {
	if dialect == "" {
		dialect = schema.DialectDraft202012
	}
	return &VerifyService{store: store, baseURL: baseURL, dialect: dialect, logger: logger}
}

// Run checks every document. Only failing to list the directory is an
// error; problems with individual documents are reported as issues.
func (s *VerifyService) Run(ctx context.Context) (VerifyReport, error) {
	var report VerifyReport

	names, err := s.store.List()
	if err != nil {
		return report, err
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		file := schema.FileName(name)
		report.Checked++

		data, err := s.store.Read(name)
		if err != nil {
			report.add(file, "unreadable: %v", err)
			continue
		}
		doc, err := schema.Decode(data)
		if err != nil {
			report.add(file, "invalid JSON: %v", err)
			continue
		}

		if want := schema.IdentityURL(s.baseURL, name); doc[schema.KeyID] != want {
			report.add(file, "$id is %v, want %s", doc[schema.KeyID], want)
		}
		if doc[schema.KeySchema] != s.dialect {
			report.add(file, "$schema is %v, want %s", doc[schema.KeySchema], s.dialect)
		}

		refs := schema.CollectRefs(schema.StripIdentity(doc))
		sort.Strings(refs)
		for _, ref := range refs {
			if target, ok := schema.PersistedRefName(ref); ok && !present[target] {
				report.add(file, "dangling reference %s", ref)
			}
		}
	}

	for _, issue := range report.Issues {
		s.logger.Warn().Str("file", issue.File).Msg(issue.Message)
	}
	s.logger.Info().
		Int("checked", report.Checked).
		Int("issues", len(report.Issues)).
		Msg("verified schemas")

	return report, nil
}

func (r *VerifyReport) add(file, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{File: file, Message: fmt.Sprintf(format, args...)})
}
