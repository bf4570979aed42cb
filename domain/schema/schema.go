// Package schema contains the pure schema-document logic shared by the
// extractor, the aggregator and the accessor library: reference forms,
// identity fields, and combination of many documents into one $defs container.
//
// Nothing in this package touches the network or the file system.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Document is a parsed JSON Schema document, a generic string-keyed mapping.
type Document = map[string]any

// Well-known keys and values.
const (
	KeyRef    = "$ref"
	KeySchema = "$schema"
	KeyID     = "$id"
	KeyDefs   = "$defs"

	// DialectDraft202012 is the schema-dialect identity written into every document.
	DialectDraft202012 = "https://json-schema.org/draft/2020-12/schema"

	// Extension is the file extension of a persisted schema document.
	Extension = ".json"
)

// ErrInvalidName is returned for schema names that cannot be used as a file stem.
var ErrInvalidName = errors.New("invalid schema name")

// ValidateName reports whether name is usable as a document file stem.
// Names that would escape the schema directory are rejected.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// FileName returns the persisted document file name for a schema name.
func FileName(name string) string {
	return name + Extension
}

// NameFromFile returns the schema name for a document file name and whether
// the file carries the document extension.
func NameFromFile(file string) (string, bool) {
	if !strings.HasSuffix(file, Extension) || len(file) == len(Extension) {
		return "", false
	}
	return strings.TrimSuffix(file, Extension), true
}
