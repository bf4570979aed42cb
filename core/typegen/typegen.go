// Package typegen compiles a combined JSON Schema document into Go type
// declarations.
//
// It understands the draft 2020-12 subset that OpenAPI 3.1 component
// schemas use in practice:
//
//   - object with properties        -> struct (optional fields are pointers with omitempty)
//   - object without properties     -> map[string]T
//   - array                         -> slice
//   - string/integer/number/boolean -> string/int64/float64/bool
//   - string with format date-time  -> time.Time
//   - string enum                   -> named string type plus constants
//   - $ref "#/$defs/X"              -> the named type generated for X
//   - nullable (type [T, "null"], nullable: true, oneOf [T, null]) -> pointer
//   - anything else                 -> json.RawMessage
//
// Every $defs entry becomes one named type. Nested inline objects and enums
// are hoisted into named types derived from their parent and field names.
package typegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/ports"
)

const rawMessage = "json.RawMessage"

// Compiler implements ports.TypeCompiler.
type Compiler struct{}

// New creates a compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile generates Go source for doc. See the package comment.
func (*Compiler) Compile(doc schema.Document, rootName string, opts ports.CompileOptions) ([]byte, error) {
	return Compile(doc, rootName, opts)
}

// Ensure interface compliance.
var _ ports.TypeCompiler = (*Compiler)(nil)

// Compile generates gofmt-formatted Go source declaring one type per $defs
// entry of doc. A root type named after rootName is generated only when the
// root itself declares properties.
func Compile(doc schema.Document, rootName string, opts ports.CompileOptions) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "types"
	}

	g := &generator{
		opts:    opts,
		defs:    schema.Defs(doc),
		names:   make(map[string]string),
		taken:   make(map[string]bool),
		imports: make(map[string]bool),
	}

	root := schema.StripIdentity(doc)
	delete(root, schema.KeyDefs)
	withRoot := hasProperties(root)

	var rootType string
	if withRoot {
		rootType = g.reserve(exportedName(rootName))
	}
	for _, name := range sortedKeys(g.defs) {
		g.names[name] = g.reserve(exportedName(name))
	}

	if withRoot {
		g.emitNamed(rootType, root)
		g.drain()
	}
	for _, name := range g.selectDefs(root) {
		g.emitNamed(g.names[name], g.defs[name])
		g.drain()
	}

	src := g.assemble()
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return out, nil
}

type pendingType struct {
	name   string
	schema map[string]any
}

type generator struct {
	opts    ports.CompileOptions
	defs    map[string]any
	names   map[string]string // $defs name -> Go type name
	taken   map[string]bool   // package-scope identifiers in use
	imports map[string]bool
	decls   []string
	pending []pendingType
}

// reserve claims a unique package-scope identifier derived from base.
func (g *generator) reserve(base string) string {
	name := base
	for i := 2; g.taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	g.taken[name] = true
	return name
}

// selectDefs returns the $defs names to emit, sorted. Without
// UnreachableDefinitions only definitions reachable from the root are kept.
func (g *generator) selectDefs(root map[string]any) []string {
	if g.opts.UnreachableDefinitions {
		return sortedKeys(g.defs)
	}

	seen := make(map[string]bool)
	queue := aggregatedTargets(root)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		body, ok := g.defs[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		queue = append(queue, aggregatedTargets(body)...)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func aggregatedTargets(v any) []string {
	var out []string
	for _, ref := range schema.CollectRefs(v) {
		if name, ok := schema.AggregatedRefName(ref); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// drain emits hoisted inline types until none are left.
func (g *generator) drain() {
	for len(g.pending) > 0 {
		p := g.pending[0]
		g.pending = g.pending[1:]
		g.emitNamed(p.name, p.schema)
	}
}

// emitNamed appends the declaration of a named type for s.
func (g *generator) emitNamed(name string, s any) {
	var b strings.Builder

	m, ok := s.(map[string]any)
	if !ok {
		// Boolean schemas accept anything (true) or nothing (false).
		fmt.Fprintf(&b, "type %s any\n", name)
		g.decls = append(g.decls, b.String())
		return
	}

	writeDoc(&b, m)

	switch {
	case isStringEnum(m):
		g.writeEnum(&b, name, m)
	case isObject(m) && hasProperties(m):
		g.writeStruct(&b, name, m)
	case isObject(m):
		fmt.Fprintf(&b, "type %s %s\n", name, g.mapType(m, name))
	default:
		if ref, ok := m[schema.KeyRef].(string); ok {
			fmt.Fprintf(&b, "type %s = %s\n", name, g.refType(ref))
			break
		}
		typ, _ := g.goType(m, name+"Value")
		fmt.Fprintf(&b, "type %s %s\n", name, typ)
	}

	g.decls = append(g.decls, b.String())
}

func (g *generator) writeEnum(b *strings.Builder, name string, m map[string]any) {
	fmt.Fprintf(b, "type %s string\n\n", name)
	b.WriteString("const (\n")
	for _, v := range m["enum"].([]any) {
		value, ok := v.(string)
		if !ok {
			continue
		}
		suffix := exportedName(value)
		if value == "" {
			suffix = "Empty"
		}
		fmt.Fprintf(b, "\t%s %s = %s\n", g.reserve(name+suffix), name, strconv.Quote(value))
	}
	b.WriteString(")\n")
}

func (g *generator) writeStruct(b *strings.Builder, name string, m map[string]any) {
	props, _ := m["properties"].(map[string]any)
	required := requiredSet(m)
	fields := make(map[string]bool)
	keys := sortedKeys(props)

	fmt.Fprintf(b, "type %s struct {\n", name)
	for _, key := range keys {
		prop := props[key]
		field := uniqueField(exportedName(key), fields)

		typ, nullable := g.goType(prop, name+field)
		req := required[key]
		if (nullable || !req || typ == name) && pointerable(typ) {
			typ = "*" + typ
		}

		if pm, ok := prop.(map[string]any); ok {
			writeFieldDoc(b, pm)
		}
		tag := key
		if !req {
			tag += ",omitempty"
		}
		fmt.Fprintf(b, "\t%s %s %s\n", field, typ, structTag(tag))
	}

	extra := ""
	if g.allowsAdditional(m) {
		extra = uniqueField("AdditionalProperties", fields)
		fmt.Fprintf(b, "\n\t// %s holds properties not declared by the schema.\n", extra)
		fmt.Fprintf(b, "\t%s map[string]any `json:\"-\"`\n", extra)
	}
	b.WriteString("}\n")

	if extra != "" {
		g.imports["encoding/json"] = true
		writeAdditionalMethods(b, name, extra, keys)
	}
}

// writeAdditionalMethods emits JSON methods that round-trip undeclared
// properties through the catch-all field.
func writeAdditionalMethods(b *strings.Builder, name, field string, known []string) {
	quoted := make([]string, len(known))
	for i, k := range known {
		quoted[i] = strconv.Quote(k)
	}

	fmt.Fprintf(b, "\nfunc (t %s) MarshalJSON() ([]byte, error) {\n", name)
	fmt.Fprintf(b, "\ttype plain %s\n", name)
	b.WriteString("\tdata, err := json.Marshal(plain(t))\n")
	fmt.Fprintf(b, "\tif err != nil || len(t.%s) == 0 {\n\t\treturn data, err\n\t}\n", field)
	b.WriteString("\tvar out map[string]any\n")
	b.WriteString("\tif err := json.Unmarshal(data, &out); err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(b, "\tfor k, v := range t.%s {\n", field)
	b.WriteString("\t\tif _, ok := out[k]; !ok {\n\t\t\tout[k] = v\n\t\t}\n\t}\n")
	b.WriteString("\treturn json.Marshal(out)\n}\n")

	fmt.Fprintf(b, "\nfunc (t *%s) UnmarshalJSON(data []byte) error {\n", name)
	fmt.Fprintf(b, "\ttype plain %s\n", name)
	b.WriteString("\tif err := json.Unmarshal(data, (*plain)(t)); err != nil {\n\t\treturn err\n\t}\n")
	b.WriteString("\tvar raw map[string]any\n")
	b.WriteString("\tif err := json.Unmarshal(data, &raw); err != nil {\n\t\treturn err\n\t}\n")
	fmt.Fprintf(b, "\tfor _, k := range []string{%s} {\n\t\tdelete(raw, k)\n\t}\n", strings.Join(quoted, ", "))
	b.WriteString("\tif len(raw) == 0 {\n")
	fmt.Fprintf(b, "\t\tt.%s = nil\n\t\treturn nil\n\t}\n", field)
	fmt.Fprintf(b, "\tt.%s = raw\n", field)
	b.WriteString("\treturn nil\n}\n")
}

// goType returns the Go type expression for s and whether s admits null.
// ctx names any type hoisted out of s.
func (g *generator) goType(s any, ctx string) (string, bool) {
	m, ok := s.(map[string]any)
	if !ok {
		return "any", false
	}

	if ref, ok := m[schema.KeyRef].(string); ok {
		return g.refType(ref), isTrue(m["nullable"])
	}

	if all, ok := m["allOf"].([]any); ok && len(all) == 1 {
		typ, nullable := g.goType(all[0], ctx)
		return typ, nullable || isTrue(m["nullable"])
	}

	for _, key := range []string{"oneOf", "anyOf"} {
		variants, ok := m[key].([]any)
		if !ok {
			continue
		}
		var rest []any
		for _, v := range variants {
			if !isNullSchema(v) {
				rest = append(rest, v)
			}
		}
		if len(rest) == 1 {
			typ, nullable := g.goType(rest[0], ctx)
			return typ, nullable || len(rest) < len(variants)
		}
		g.imports["encoding/json"] = true
		return rawMessage, false
	}

	types, nullable := schemaTypes(m)
	if len(types) > 1 {
		g.imports["encoding/json"] = true
		return rawMessage, false
	}

	switch types[0] {
	case "string":
		if isStringEnum(m) {
			name := g.reserve(ctx)
			g.pending = append(g.pending, pendingType{name: name, schema: m})
			return name, nullable
		}
		if f, _ := m["format"].(string); f == "date-time" {
			g.imports["time"] = true
			return "time.Time", nullable
		}
		return "string", nullable
	case "integer":
		return "int64", nullable
	case "number":
		return "float64", nullable
	case "boolean":
		return "bool", nullable
	case "null":
		return "any", false
	case "array":
		items, ok := m["items"]
		if !ok {
			return "[]any", nullable
		}
		elem, elemNull := g.goType(items, ctx+"Item")
		if elemNull && pointerable(elem) {
			elem = "*" + elem
		}
		return "[]" + elem, nullable
	case "object":
		if hasProperties(m) {
			name := g.reserve(ctx)
			g.pending = append(g.pending, pendingType{name: name, schema: m})
			return name, nullable
		}
		return g.mapType(m, ctx), nullable
	default:
		g.imports["encoding/json"] = true
		return rawMessage, nullable
	}
}

// mapType returns the map type for an object schema without properties.
// Objects that forbid additional properties become empty structs.
func (g *generator) mapType(m map[string]any, ctx string) string {
	switch ap := m["additionalProperties"].(type) {
	case map[string]any:
		elem, nullable := g.goType(ap, ctx+"Value")
		if nullable && pointerable(elem) {
			elem = "*" + elem
		}
		return "map[string]" + elem
	case bool:
		if !ap {
			return "struct{}"
		}
	default:
		if !g.opts.AdditionalProperties {
			return "struct{}"
		}
	}
	return "map[string]any"
}

func (g *generator) refType(ref string) string {
	name, ok := schema.AggregatedRefName(ref)
	if ok {
		if typ, ok := g.names[name]; ok {
			return typ
		}
	}
	// Dangling or external reference: keep the raw JSON.
	g.imports["encoding/json"] = true
	return rawMessage
}

func (g *generator) allowsAdditional(m map[string]any) bool {
	switch ap := m["additionalProperties"].(type) {
	case bool:
		return ap
	case map[string]any:
		return true
	default:
		return g.opts.AdditionalProperties
	}
}

func (g *generator) assemble() []byte {
	var b bytes.Buffer

	if banner := strings.TrimSpace(g.opts.BannerComment); banner != "" {
		for _, line := range strings.Split(banner, "\n") {
			line = strings.TrimRight(line, " \t\r")
			if !strings.HasPrefix(line, "//") {
				line = "// " + line
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "package %s\n\n", g.opts.Package)

	if len(g.imports) > 0 {
		b.WriteString("import (\n")
		for _, imp := range sortedKeys(g.imports) {
			fmt.Fprintf(&b, "\t%q\n", imp)
		}
		b.WriteString(")\n\n")
	}

	b.WriteString(strings.Join(g.decls, "\n"))
	return b.Bytes()
}

// schemaTypes returns the non-null JSON types s declares, inferring one when
// "type" is absent, and whether null is admitted.
func schemaTypes(m map[string]any) ([]string, bool) {
	nullable := isTrue(m["nullable"])
	var types []string

	switch t := m["type"].(type) {
	case string:
		if t == "null" {
			return []string{"null"}, true
		}
		types = append(types, t)
	case []any:
		for _, v := range t {
			s, _ := v.(string)
			if s == "null" {
				nullable = true
				continue
			}
			if s != "" {
				types = append(types, s)
			}
		}
	}

	if len(types) == 0 {
		switch {
		case hasProperties(m) || m["additionalProperties"] != nil:
			types = []string{"object"}
		case m["items"] != nil:
			types = []string{"array"}
		case isStringEnum(m):
			types = []string{"string"}
		default:
			if _, ok := m["const"].(string); ok {
				types = []string{"string"}
			} else {
				types = []string{""}
			}
		}
	}
	return types, nullable
}

func isObject(m map[string]any) bool {
	types, _ := schemaTypes(m)
	return len(types) == 1 && types[0] == "object"
}

func hasProperties(m map[string]any) bool {
	props, ok := m["properties"].(map[string]any)
	return ok && len(props) > 0
}

func isStringEnum(m map[string]any) bool {
	values, ok := m["enum"].([]any)
	if !ok || len(values) == 0 {
		return false
	}
	found := false
	for _, v := range values {
		switch v.(type) {
		case nil:
		case string:
			found = true
		default:
			return false
		}
	}
	if t, ok := m["type"].(string); ok && t != "string" {
		return false
	}
	return found
}

func isNullSchema(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, _ := m["type"].(string)
	return t == "null" && len(m) == 1
}

func isTrue(v any) bool {
	b, _ := v.(bool)
	return b
}

func requiredSet(m map[string]any) map[string]bool {
	out := make(map[string]bool)
	list, _ := m["required"].([]any)
	for _, v := range list {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}

func pointerable(typ string) bool {
	switch {
	case typ == "any", typ == rawMessage:
		return false
	case strings.HasPrefix(typ, "[]"), strings.HasPrefix(typ, "map["), strings.HasPrefix(typ, "*"):
		return false
	}
	return true
}

func structTag(tag string) string {
	if strings.ContainsAny(tag, "`") {
		return strconv.Quote("json:" + strconv.Quote(tag))
	}
	return "`json:" + strconv.Quote(tag) + "`"
}

func uniqueField(base string, taken map[string]bool) string {
	name := base
	for i := 2; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	taken[name] = true
	return name
}

func writeDoc(b *strings.Builder, m map[string]any) {
	text, _ := m["description"].(string)
	if text == "" {
		text, _ = m["title"].(string)
	}
	writeComment(b, "", text)
}

func writeFieldDoc(b *strings.Builder, m map[string]any) {
	text, _ := m["description"].(string)
	writeComment(b, "\t", text)
}

func writeComment(b *strings.Builder, indent, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteString(indent + "//\n")
			continue
		}
		b.WriteString(indent + "// " + line + "\n")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
