package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/neris-schemas/adapters/fsstore"
	"github.com/artpar/neris-schemas/domain/schema"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func schemaDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "schemas", "v1")
	t.Setenv("NERIS_SCHEMAS_DIR", dir)
	t.Setenv("NERIS_LOG_LEVEL", "error")
	t.Setenv("NERIS_METRICS_TEXTFILE", "")
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "neris-schemas dev") {
		t.Errorf("output = %q, want neris-schemas dev prefix", out)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := schemaDir(t)
	store := fsstore.New(dir)
	doc := schema.NewDocument(schema.DialectDraft202012,
		schema.IdentityURL("https://schemas.neris.fsri.org/v1", "StationPayload"),
		map[string]any{"type": "object"})
	if err := store.Write("StationPayload", doc); err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	out, err := execute(t, "validate", "--config", missing)
	if err != nil {
		t.Fatalf("validate error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Schemas are valid.") {
		t.Errorf("output missing success line:\n%s", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "Broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "validate", "--config", missing)
	if err == nil {
		t.Fatalf("validate succeeded with a broken document:\n%s", out)
	}
	if !strings.Contains(out, "Broken.json") {
		t.Errorf("output does not name the broken document:\n%s", out)
	}
}
