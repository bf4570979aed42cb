// Package openapi parses the remote OpenAPI 3.1 description. Only the
// fields the extractor consumes are kept: openapi, info.title, info.version
// and components.schemas.
package openapi

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Description is the consumed subset of an OpenAPI description.
type Description struct {
	OpenAPI string
	Info    *Info
	// Schemas maps schema name to its JSON-compatible body.
	Schemas map[string]any
}

// Info is the info object of the description.
type Info struct {
	Title   string
	Version string
}

// SchemaNames returns the schema names in sorted order.
func (d *Description) SchemaNames() []string {
	names := make([]string, 0, len(d.Schemas))
	for name := range d.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a YAML (or JSON) OpenAPI description. A missing
// components.schemas mapping yields an empty schema set, not an error.
func Parse(data []byte) (*Description, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse openapi description: %w", err)
	}

	v, err := nodeValue(&node)
	if err != nil {
		return nil, fmt.Errorf("parse openapi description: %w", err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("parse openapi description: document is not a mapping")
	}

	d := &Description{
		OpenAPI: scalarString(root["openapi"]),
		Schemas: map[string]any{},
	}

	if info, ok := root["info"].(map[string]any); ok {
		d.Info = &Info{
			Title:   scalarString(info["title"]),
			Version: scalarString(info["version"]),
		}
	}

	if components, ok := root["components"].(map[string]any); ok {
		if schemas, ok := components["schemas"].(map[string]any); ok {
			d.Schemas = schemas
		}
	}

	return d, nil
}

// nodeValue converts a YAML node tree into JSON-compatible values:
// map[string]any, []any and scalars. Timestamps stay strings, matching a
// JSON-schema reading of the document, and non-string mapping keys use
// their textual form.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.ShortTag() == "!!merge" {
				if err := mergeInto(out, val); err != nil {
					return nil, err
				}
				continue
			}
			v, err := nodeValue(val)
			if err != nil {
				return nil, err
			}
			out[key.Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

// mergeInto applies a YAML merge key ("<<") without overriding keys that
// are already present.
func mergeInto(out map[string]any, val *yaml.Node) error {
	v, err := nodeValue(val)
	if err != nil {
		return err
	}
	sources := []any{v}
	if seq, ok := v.([]any); ok {
		sources = seq
	}
	for _, src := range sources {
		m, ok := src.(map[string]any)
		if !ok {
			return fmt.Errorf("line %d: merge value is not a mapping", val.Line)
		}
		for k, mv := range m {
			if _, exists := out[k]; !exists {
				out[k] = mv
			}
		}
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
