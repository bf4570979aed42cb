package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/neris-schemas/adapters/fsstore"
	"github.com/artpar/neris-schemas/adapters/memory"
	"github.com/artpar/neris-schemas/core/typegen"
	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
	"github.com/rs/zerolog"
)

const baseURL = "https://schemas.neris.fsri.org/v1"

const description = `
openapi: 3.1.0
info:
  title: NERIS API
  version: 1.0.0
components:
  schemas:
    DepartmentPayload:
      type: object
      properties:
        name:
          type: string
        stations:
          type: array
          items:
            $ref: '#/components/schemas/StationPayload'
        primary:
          $ref: '#/components/schemas/StationPayload'
      required: [name]
    StationPayload:
      type: object
      properties:
        station_id:
          type: string
        type:
          $ref: '#/components/schemas/TypeStationValue'
    TypeStationValue:
      type: string
      enum: [FIRE, EMS]
`

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
	url   string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	f.url = url
	return f.data, f.err
}

func newExtract(fetcher ports.SpecFetcher, store ports.SchemaStore) *ExtractService {
	return NewExtractService(ExtractConfig{
		URL:     "https://api-test.neris.fsri.org/v1/openapi.yaml",
		BaseURL: baseURL,
		Fetcher: fetcher,
		Store:   store,
		Logger:  zerolog.Nop(),
	})
}

func newAggregate(store ports.SchemaStore, writer ports.ArtifactWriter, logger zerolog.Logger) *AggregateService {
	return NewAggregateService(AggregateConfig{
		Store:    store,
		Writer:   writer,
		Compiler: typegen.New(),
		Output:   "types/neris/types.go",
		Options: ports.CompileOptions{
			Package:                "neris",
			UnreachableDefinitions: true,
		},
		Logger: logger,
	})
}

func readDoc(t *testing.T, store ports.SchemaStore, name string) schema.Document {
	t.Helper()
	data, err := store.Read(name)
	if err != nil {
		t.Fatalf("Read(%s) error: %v", name, err)
	}
	doc, err := schema.Decode(data)
	if err != nil {
		t.Fatalf("Decode(%s) error: %v", name, err)
	}
	return doc
}

func TestExtract_WritesEverySchema(t *testing.T) {
	store := memory.NewSchemaStore()
	fetcher := &fakeFetcher{data: []byte(description)}

	result, err := newExtract(fetcher, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if fetcher.url != "https://api-test.neris.fsri.org/v1/openapi.yaml" {
		t.Errorf("fetched %q", fetcher.url)
	}
	if result.Title != "NERIS API" || result.Version != "1.0.0" || result.OpenAPI != "3.1.0" {
		t.Errorf("result info = %+v", result)
	}
	if len(result.Names) != 3 {
		t.Fatalf("Names = %v, want 3 names", result.Names)
	}

	for _, name := range result.Names {
		doc := readDoc(t, store, name)
		id, _ := doc["$id"].(string)
		if !strings.HasSuffix(id, "/"+name+".json") {
			t.Errorf("%s: $id = %q, want suffix /%s.json", name, id, name)
		}
		if doc["$schema"] != schema.DialectDraft202012 {
			t.Errorf("%s: $schema = %v", name, doc["$schema"])
		}
	}
}

func TestExtract_RewritesReferences(t *testing.T) {
	store := memory.NewSchemaStore()

	if _, err := newExtract(&fakeFetcher{data: []byte(description)}, store).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	dept := readDoc(t, store, "DepartmentPayload")
	props := dept["properties"].(map[string]any)
	if ref := props["primary"].(map[string]any)["$ref"]; ref != "./StationPayload.json" {
		t.Errorf("primary $ref = %v, want ./StationPayload.json", ref)
	}
	items := props["stations"].(map[string]any)["items"].(map[string]any)
	if ref := items["$ref"]; ref != "./StationPayload.json" {
		t.Errorf("stations.items $ref = %v, want ./StationPayload.json", ref)
	}
	if dept["$id"] != baseURL+"/DepartmentPayload.json" {
		t.Errorf("$id = %v", dept["$id"])
	}
}

func TestExtract_Idempotent(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	svc := newExtract(&fakeFetcher{data: []byte(description)}, store)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "DepartmentPayload.json"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "DepartmentPayload.json"))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("documents differ between runs:\n%s\n---\n%s", first, second)
	}
	if !bytes.HasSuffix(first, []byte("\n")) {
		t.Error("document missing trailing newline")
	}
}

func TestExtract_NoComponents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schemas", "v1")
	store := fsstore.New(dir)

	result, err := newExtract(&fakeFetcher{data: []byte("openapi: 3.1.0\n")}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Names) != 0 {
		t.Errorf("Names = %v, want none", result.Names)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestExtract_FatalErrors(t *testing.T) {
	fetchErr := errors.New("connection refused")

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		wantIs  error
	}{
		{"fetch failure", &fakeFetcher{err: fetchErr}, fetchErr},
		{"unparseable description", &fakeFetcher{data: []byte("openapi: [")}, nil},
		{"invalid schema name", &fakeFetcher{data: []byte("components:\n  schemas:\n    ../evil:\n      type: string\n")}, schema.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewSchemaStore()

			_, err := newExtract(tt.fetcher, store).Run(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if store.Len() != 0 {
				t.Errorf("wrote %d documents on fatal error", store.Len())
			}
		})
	}
}

func TestAggregate_RoundTripResolvesEveryReference(t *testing.T) {
	store := memory.NewSchemaStore()
	if _, err := newExtract(&fakeFetcher{data: []byte(description)}, store).Run(context.Background()); err != nil {
		t.Fatalf("extract error: %v", err)
	}

	combined, stats, err := newAggregate(store, memory.NewArtifacts(), zerolog.Nop()).Combine(context.Background())
	if err != nil {
		t.Fatalf("Combine error: %v", err)
	}
	if stats.Loaded != 3 || len(stats.Skipped) != 0 {
		t.Errorf("stats = %+v, want 3 loaded", stats)
	}
	if combined["$id"] != DefaultCombinedID {
		t.Errorf("$id = %v", combined["$id"])
	}

	defs := schema.Defs(combined)
	refs := schema.CollectRefs(defs)
	if len(refs) != 3 {
		t.Errorf("refs = %v, want 3", refs)
	}
	for _, ref := range refs {
		name, ok := schema.AggregatedRefName(ref)
		if !ok {
			t.Errorf("reference %q not in aggregated form", ref)
			continue
		}
		if _, ok := defs[name]; !ok {
			t.Errorf("dangling reference %q", ref)
		}
	}
}

func TestAggregate_StripsIdentity(t *testing.T) {
	store := memory.NewSchemaStore()
	if err := store.Write("A", schema.Document{
		"$schema": schema.DialectDraft202012,
		"$id":     baseURL + "/A.json",
		"type":    "string",
	}); err != nil {
		t.Fatal(err)
	}

	combined, _, err := newAggregate(store, memory.NewArtifacts(), zerolog.Nop()).Combine(context.Background())
	if err != nil {
		t.Fatalf("Combine error: %v", err)
	}

	entry := schema.Defs(combined)["A"].(map[string]any)
	if _, ok := entry["$schema"]; ok {
		t.Error("$schema not stripped")
	}
	if _, ok := entry["$id"]; ok {
		t.Error("$id not stripped")
	}
	if entry["type"] != "string" {
		t.Errorf("type = %v, want string", entry["type"])
	}

	// The persisted document is left untouched.
	if doc := readDoc(t, store, "A"); doc["$id"] != baseURL+"/A.json" {
		t.Errorf("persisted document modified: %v", doc)
	}
}

func TestAggregate_SkipsBrokenDocument(t *testing.T) {
	store := memory.NewSchemaStore()
	store.Put("Good", []byte(`{"$id":"x","type":"string"}`))
	store.Put("Broken", []byte(`{"type": "obj`))
	store.Put("Other", []byte(`{"type":"integer"}`))

	var logs bytes.Buffer
	svc := newAggregate(store, memory.NewArtifacts(), zerolog.New(&logs))

	combined, stats, err := svc.Combine(context.Background())
	if err != nil {
		t.Fatalf("Combine error: %v", err)
	}

	defs := schema.Defs(combined)
	if len(defs) != 2 {
		t.Errorf("len($defs) = %d, want 2", len(defs))
	}
	if _, ok := defs["Broken"]; ok {
		t.Error("broken document included")
	}
	if len(stats.Skipped) != 1 || stats.Skipped[0] != "Broken.json" {
		t.Errorf("Skipped = %v, want [Broken.json]", stats.Skipped)
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) || !strings.Contains(logs.String(), "Broken.json") {
		t.Errorf("expected warning naming Broken.json, got %s", logs.String())
	}
}

func TestAggregate_RunWritesTypes(t *testing.T) {
	store := memory.NewSchemaStore()
	if _, err := newExtract(&fakeFetcher{data: []byte(description)}, store).Run(context.Background()); err != nil {
		t.Fatalf("extract error: %v", err)
	}

	artifacts := memory.NewArtifacts()
	svc := NewAggregateService(AggregateConfig{
		Store:          store,
		Writer:         artifacts,
		Compiler:       typegen.New(),
		Output:         "types/neris/types.go",
		CombinedOutput: "dist/all.json",
		Options:        ports.CompileOptions{Package: "neris", UnreachableDefinitions: true},
		Logger:         zerolog.Nop(),
	})

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Loaded != 3 {
		t.Errorf("Loaded = %d, want 3", result.Loaded)
	}

	out, ok := artifacts.Get("types/neris/types.go")
	if !ok {
		t.Fatal("types not written")
	}
	wantPrefix := HeaderGenerated + "\n" + HeaderManual + "\n\npackage neris"
	if !strings.HasPrefix(string(out), wantPrefix) {
		t.Errorf("output prefix:\n%s", out)
	}
	for _, want := range []string{"type DepartmentPayload struct", "type StationPayload struct", "type TypeStationValue string"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %q", want)
		}
	}

	raw, ok := artifacts.Get("dist/all.json")
	if !ok {
		t.Fatal("combined document not written")
	}
	if !strings.Contains(string(raw), `"$ref": "#/$defs/StationPayload"`) {
		t.Errorf("combined document not resolved:\n%s", raw)
	}
}

type failingCompiler struct{}

func (failingCompiler) Compile(schema.Document, string, ports.CompileOptions) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestAggregate_CompileErrorIsFatal(t *testing.T) {
	store := memory.NewSchemaStore()
	store.Put("A", []byte(`{"type":"string"}`))
	artifacts := memory.NewArtifacts()

	svc := NewAggregateService(AggregateConfig{
		Store:    store,
		Writer:   artifacts,
		Compiler: failingCompiler{},
		Output:   "types.go",
		Logger:   zerolog.Nop(),
	})

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := artifacts.Get("types.go"); ok {
		t.Error("output written despite compile failure")
	}
}

func TestAggregate_CancelledContext(t *testing.T) {
	store := memory.NewSchemaStore()
	store.Put("A", []byte(`{"type":"string"}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newAggregate(store, memory.NewArtifacts(), zerolog.Nop()).Combine(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestVerify_CleanDirectory(t *testing.T) {
	store := memory.NewSchemaStore()
	if _, err := newExtract(&fakeFetcher{data: []byte(description)}, store).Run(context.Background()); err != nil {
		t.Fatalf("extract error: %v", err)
	}

	report, err := NewVerifyService(store, baseURL, "", zerolog.Nop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Checked != 3 {
		t.Errorf("Checked = %d, want 3", report.Checked)
	}
	if !report.OK() {
		t.Errorf("unexpected issues: %v", report.Issues)
	}
}

func TestVerify_ReportsIssues(t *testing.T) {
	store := memory.NewSchemaStore()
	store.Put("Broken", []byte(`{`))
	store.Put("Dangling", []byte(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id": "https://schemas.neris.fsri.org/v1/Dangling.json",
		"properties": {"x": {"$ref": "./Missing.json"}, "y": {"$ref": "https://example.org/ext.json"}}
	}`))
	store.Put("WrongID", []byte(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id": "https://schemas.neris.fsri.org/v1/Other.json"
	}`))

	report, err := NewVerifyService(store, baseURL, "", zerolog.Nop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected issues")
	}

	var got []string
	for _, issue := range report.Issues {
		got = append(got, issue.String())
	}
	joined := strings.Join(got, "\n")

	for _, want := range []string{
		"Broken.json: invalid JSON",
		"Dangling.json: dangling reference ./Missing.json",
		"WrongID.json: $id is https://schemas.neris.fsri.org/v1/Other.json",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("issues missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "example.org") {
		t.Errorf("external reference reported as dangling:\n%s", joined)
	}
	if len(report.Issues) != 3 {
		t.Errorf("len(Issues) = %d, want 3:\n%s", len(report.Issues), joined)
	}
}
