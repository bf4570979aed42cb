// Package fsstore keeps schema documents as individual files in a directory.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
)

// Store is a file-system implementation of ports.SchemaStore.
// Each schema name maps to exactly one <name>.json file in dir.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is not created until
// Ensure or Write is called.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the schema directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of the document for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, schema.FileName(name))
}

// Ensure creates the schema directory if it is absent.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create schema dir: %w", err)
	}
	return nil
}

// Write serializes doc and overwrites the document for name.
func (s *Store) Write(name string, doc schema.Document) error {
	if err := schema.ValidateName(name); err != nil {
		return err
	}
	data, err := schema.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Read returns the raw document for name. A missing document yields an
// error satisfying errors.Is(err, fs.ErrNotExist).
func (s *Store) Read(name string) ([]byte, error) {
	if err := schema.ValidateName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path(name))
}

// List returns the names of the regular .json files in the directory, sorted.
// Subdirectories and other files are ignored.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list schema dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if name, ok := schema.NameFromFile(e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Ensure interface compliance.
var _ ports.SchemaStore = (*Store)(nil)

// FileWriter writes artifacts to arbitrary paths on disk.
type FileWriter struct{}

// WriteArtifact writes data to path, creating parent directories as needed.
func (FileWriter) WriteArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.ArtifactWriter = FileWriter{}
