// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and core/.
package ports

import (
	"context"

	"github.com/artpar/neris-schemas/domain/schema"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Source Ports
// -----------------------------------------------------------------------------

// SpecFetcher retrieves the raw remote API description.
type SpecFetcher interface {
	// Fetch returns the body served at url. Any transport failure or
	// non-success response is an error.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// -----------------------------------------------------------------------------
// Storage Ports
// -----------------------------------------------------------------------------

// SchemaStore persists individual schema documents, one per name.
type SchemaStore interface {
	// Dir returns the directory holding the documents.
	Dir() string

	// Ensure creates the directory if it is absent.
	Ensure() error

	// Write serializes doc and overwrites the document for name.
	Write(name string, doc schema.Document) error

	// Read returns the raw bytes of the document for name.
	Read(name string) ([]byte, error)

	// List returns the names of all persisted documents, sorted.
	List() ([]string, error)
}

// ArtifactWriter writes generated artifacts outside the schema directory.
type ArtifactWriter interface {
	// WriteArtifact writes data to path, creating parent directories.
	WriteArtifact(path string, data []byte) error
}

// -----------------------------------------------------------------------------
// Compiler Ports
// -----------------------------------------------------------------------------

// CompileOptions configures a schema-to-type compiler.
type CompileOptions struct {
	// Package is the package clause of the generated source.
	Package string

	// AdditionalProperties is the default for object schemas that do not
	// declare additionalProperties. False disallows unknown properties.
	AdditionalProperties bool

	// UnreachableDefinitions emits every $defs entry, including those no
	// other schema references.
	UnreachableDefinitions bool

	// BannerComment is emitted above the package clause. Empty suppresses it.
	BannerComment string
}

// TypeCompiler turns a fully resolved combined schema document into type
// declarations.
type TypeCompiler interface {
	Compile(doc schema.Document, rootName string, opts CompileOptions) ([]byte, error)
}
