// Package memory provides in-memory implementations for testing.
package memory

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
)

// SchemaStore is an in-memory implementation of ports.SchemaStore.
// Documents are kept serialized so malformed content can be seeded with Put.
type SchemaStore struct {
	mu   sync.RWMutex
	dir  string
	docs map[string][]byte // by name
}

// NewSchemaStore creates a new in-memory schema store.
func NewSchemaStore() *SchemaStore {
	return &SchemaStore{
		dir:  "memory",
		docs: make(map[string][]byte),
	}
}

// Dir returns a placeholder directory name.
func (s *SchemaStore) Dir() string {
	return s.dir
}

// Ensure is a no-op.
func (s *SchemaStore) Ensure() error {
	return nil
}

// Write serializes doc and stores it under name.
func (s *SchemaStore) Write(name string, doc schema.Document) error {
	if err := schema.ValidateName(name); err != nil {
		return err
	}
	data, err := schema.Encode(doc)
	if err != nil {
		return err
	}
	s.Put(name, data)
	return nil
}

// Put stores raw bytes under name without validation.
func (s *SchemaStore) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[name] = append([]byte(nil), data...)
}

// Read returns the stored bytes for name.
func (s *SchemaStore) Read(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// List returns all stored names, sorted.
func (s *SchemaStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Len returns the number of stored documents.
func (s *SchemaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ensure interface compliance.
var _ ports.SchemaStore = (*SchemaStore)(nil)

// Artifacts is an in-memory implementation of ports.ArtifactWriter.
type Artifacts struct {
	mu    sync.RWMutex
	files map[string][]byte // by path
}

// NewArtifacts creates an empty artifact sink.
func NewArtifacts() *Artifacts {
	return &Artifacts{files: make(map[string][]byte)}
}

// WriteArtifact records data under path.
func (a *Artifacts) WriteArtifact(path string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files[path] = append([]byte(nil), data...)
	return nil
}

// Get returns the artifact written to path.
func (a *Artifacts) Get(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.files[path]
	return data, ok
}

// Ensure interface compliance.
var _ ports.ArtifactWriter = (*Artifacts)(nil)
