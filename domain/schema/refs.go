package schema

import (
	"regexp"
	"strings"
)

// Reference prefixes for the three forms a cross-reference takes.
// The target name is identical in all of them.
const (
	// SourceRefPrefix is used inside the remote OpenAPI description.
	SourceRefPrefix = "#/components/schemas/"
	// PersistedRefPrefix is used inside individual persisted documents.
	PersistedRefPrefix = "./"
	// AggregatedRefPrefix is used inside the combined document.
	AggregatedRefPrefix = "#/$defs/"
)

// SourceRef returns the source form of a reference to name.
func SourceRef(name string) string {
	return SourceRefPrefix + name
}

// PersistedRef returns the persisted form of a reference to name.
func PersistedRef(name string) string {
	return PersistedRefPrefix + name + Extension
}

// AggregatedRef returns the aggregated form of a reference to name.
func AggregatedRef(name string) string {
	return AggregatedRefPrefix + name
}

// SourceRefName extracts the target name from a source-form reference.
func SourceRefName(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, SourceRefPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// PersistedRefName extracts the target name from a persisted-form reference.
func PersistedRefName(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, PersistedRefPrefix)
	if !ok {
		return "", false
	}
	return NameFromFile(rest)
}

// AggregatedRefName extracts the target name from an aggregated-form reference.
func AggregatedRefName(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, AggregatedRefPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// RewriteSourceRefs returns a deep copy of v in which every "$ref" string in
// source form is replaced by its persisted form. Mappings and sequences are
// traversed; all other keys and scalars pass through unchanged. A "$ref" that
// does not point into the components schema container is left as is.
func RewriteSourceRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == KeyRef {
				if ref, ok := val.(string); ok {
					if name, ok := SourceRefName(ref); ok {
						out[k] = PersistedRef(name)
						continue
					}
					out[k] = ref
					continue
				}
			}
			out[k] = RewriteSourceRefs(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = RewriteSourceRefs(val)
		}
		return out
	default:
		return v
	}
}

// persistedRefPattern matches a serialized persisted-form reference. The
// literal `"$ref": "./X.json"` shape is only ever produced by the extractor,
// so a textual substitution cannot hit unrelated string values.
var persistedRefPattern = regexp.MustCompile(`"\$ref"\s*:\s*"\./([^"]+)\.json"`)

// ResolvePersistedRefs textually rewrites every persisted-form reference in
// serialized JSON into aggregated form.
func ResolvePersistedRefs(data []byte) []byte {
	return persistedRefPattern.ReplaceAll(data, []byte(`"$$ref":"#/$$defs/${1}"`))
}

// CollectRefs returns every "$ref" string found anywhere in v.
// Order is unspecified.
func CollectRefs(v any) []string {
	var refs []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for k, val := range t {
				if ref, ok := val.(string); ok && k == KeyRef {
					refs = append(refs, ref)
					continue
				}
				walk(val)
			}
		case []any:
			for _, val := range t {
				walk(val)
			}
		}
	}
	walk(v)
	return refs
}
