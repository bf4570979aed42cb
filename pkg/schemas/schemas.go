// Package schemas loads the published NERIS JSON Schema documents.
//
// Every call reads the document from disk, so documents regenerated while a
// program runs are picked up without any invalidation.
package schemas

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/artpar/neris-schemas/adapters/fsstore"
	"github.com/artpar/neris-schemas/domain/schema"
)

// SchemaBaseURL is the prefix of every published document $id.
const SchemaBaseURL = "https://schemas.neris.fsri.org/v1"

// DefaultSchemasPath is the schema directory used when none is configured.
const DefaultSchemasPath = "schemas/v1"

// EnvSchemasDir overrides the directory of the default library.
const EnvSchemasDir = "NERIS_SCHEMAS_DIR"

// Library reads schema documents from one directory.
type Library struct {
	store *fsstore.Store
}

// New creates a library rooted at root.
func New(root string) *Library {
	return &Library{store: fsstore.New(root)}
}

// Path returns the schema directory.
func (l *Library) Path() string {
	return l.store.Dir()
}

// Raw returns the document for name exactly as stored.
func (l *Library) Raw(name string) ([]byte, error) {
	if err := schema.ValidateName(name); err != nil {
		return nil, fmt.Errorf("load schema: %w: %w", err, fs.ErrNotExist)
	}
	data, err := l.store.Read(name)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	return data, nil
}

// Get reads and parses the document for name. A missing document yields an
// error satisfying errors.Is(err, fs.ErrNotExist).
func (l *Library) Get(name string) (map[string]any, error) {
	data, err := l.Raw(name)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	return doc, nil
}

// Names lists the available schema names, sorted.
func (l *Library) Names() ([]string, error) {
	return l.store.List()
}

// URL returns the $id of the document for name.
func (l *Library) URL(name string) string {
	return schema.IdentityURL(SchemaBaseURL, name)
}

func (l *Library) GetDepartmentPayloadSchema() (map[string]any, error) {
	return l.Get("DepartmentPayload")
}

func (l *Library) GetCreateDepartmentPayloadSchema() (map[string]any, error) {
	return l.Get("CreateDepartmentPayload")
}

func (l *Library) GetStationPayloadSchema() (map[string]any, error) {
	return l.Get("StationPayload")
}

func (l *Library) GetIncidentPayloadSchema() (map[string]any, error) {
	return l.Get("IncidentPayload")
}

func (l *Library) GetFirePayloadSchema() (map[string]any, error) {
	return l.Get("FirePayload")
}

func (l *Library) GetMedicalPayloadSchema() (map[string]any, error) {
	return l.Get("MedicalPayload")
}

// SchemasPath returns the directory of the default library:
// $NERIS_SCHEMAS_DIR when set, DefaultSchemasPath otherwise.
func SchemasPath() string {
	if dir := os.Getenv(EnvSchemasDir); dir != "" {
		return filepath.Clean(dir)
	}
	return DefaultSchemasPath
}

// Default returns a library rooted at SchemasPath. The environment is
// consulted on every call.
func Default() *Library {
	return New(SchemasPath())
}

// GetSchema loads name from the default library.
func GetSchema(name string) (map[string]any, error) {
	return Default().Get(name)
}

// Convenience loaders for commonly used documents.

func GetDepartmentPayloadSchema() (map[string]any, error) {
	return Default().GetDepartmentPayloadSchema()
}

func GetCreateDepartmentPayloadSchema() (map[string]any, error) {
	return Default().GetCreateDepartmentPayloadSchema()
}

func GetStationPayloadSchema() (map[string]any, error) {
	return Default().GetStationPayloadSchema()
}

func GetIncidentPayloadSchema() (map[string]any, error) {
	return Default().GetIncidentPayloadSchema()
}

func GetFirePayloadSchema() (map[string]any, error) {
	return Default().GetFirePayloadSchema()
}

func GetMedicalPayloadSchema() (map[string]any, error) {
	return Default().GetMedicalPayloadSchema()
}
