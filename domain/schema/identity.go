package schema

import "strings"

// IdentityURL returns the deterministic $id for the named document under baseURL.
func IdentityURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + FileName(name)
}

// NewDocument builds a persisted document: the identity fields followed by
// the body's own fields. Body fields named $schema or $id are overridden by
// the envelope.
func NewDocument(dialect, id string, body map[string]any) Document {
	doc := make(Document, len(body)+2)
	for k, v := range body {
		doc[k] = v
	}
	doc[KeySchema] = dialect
	doc[KeyID] = id
	return doc
}

// StripIdentity returns a shallow copy of doc without the document-identity
// and schema-dialect-identity fields. doc itself is not modified.
func StripIdentity(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == KeySchema || k == KeyID {
			continue
		}
		out[k] = v
	}
	return out
}

// Combine builds the combined container document holding every member under
// $defs. Member order is irrelevant: $defs entries are addressed by name.
func Combine(dialect, id string, members map[string]Document) Document {
	defs := make(map[string]any, len(members))
	for name, body := range members {
		defs[name] = body
	}
	return Document{
		KeySchema: dialect,
		KeyID:     id,
		KeyDefs:   defs,
	}
}

// Defs returns the $defs mapping of a combined document, or nil.
func Defs(doc Document) map[string]any {
	defs, _ := doc[KeyDefs].(map[string]any)
	return defs
}
