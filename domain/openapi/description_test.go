package openapi

import (
	"reflect"
	"testing"
)

const sampleDescription = `
openapi: 3.1.0
info:
  title: NERIS API
  version: 1.4.2
paths: {}
components:
  schemas:
    DepartmentPayload:
      type: object
      properties:
        name:
          type: string
        stations:
          type: array
          items:
            $ref: '#/components/schemas/StationPayload'
        founded:
          type: string
          example: 2001-03-04
      required: [name]
    StationPayload:
      type: object
      properties:
        station_id:
          type: string
    Codes:
      type: object
      properties:
        200:
          type: string
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sampleDescription))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if d.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI = %q, want 3.1.0", d.OpenAPI)
	}
	if d.Info == nil || d.Info.Title != "NERIS API" || d.Info.Version != "1.4.2" {
		t.Errorf("Info = %+v, want NERIS API 1.4.2", d.Info)
	}

	names := d.SchemaNames()
	if !reflect.DeepEqual(names, []string{"Codes", "DepartmentPayload", "StationPayload"}) {
		t.Errorf("SchemaNames = %v", names)
	}

	dept := d.Schemas["DepartmentPayload"].(map[string]any)
	props := dept["properties"].(map[string]any)
	items := props["stations"].(map[string]any)["items"].(map[string]any)
	if items["$ref"] != "#/components/schemas/StationPayload" {
		t.Errorf("items.$ref = %v", items["$ref"])
	}
	if ex := props["founded"].(map[string]any)["example"]; ex != "2001-03-04" {
		t.Errorf("timestamp example = %#v, want string 2001-03-04", ex)
	}
	if !reflect.DeepEqual(dept["required"], []any{"name"}) {
		t.Errorf("required = %#v", dept["required"])
	}

	codes := d.Schemas["Codes"].(map[string]any)["properties"].(map[string]any)
	if _, ok := codes["200"]; !ok {
		t.Errorf("integer mapping key not converted to string: %v", codes)
	}
}

func TestParse_NoComponents(t *testing.T) {
	d, err := Parse([]byte("openapi: 3.1.0\ninfo:\n  title: Empty\n  version: '1'\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(d.Schemas) != 0 {
		t.Errorf("len(Schemas) = %d, want 0", len(d.Schemas))
	}
	if d.SchemaNames() == nil {
		t.Error("SchemaNames should return an empty, non-nil slice")
	}
}

func TestParse_NoInfo(t *testing.T) {
	d, err := Parse([]byte("openapi: 3.1.0\ncomponents:\n  schemas: {}\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if d.Info != nil {
		t.Errorf("Info = %+v, want nil", d.Info)
	}
}

func TestParse_MergeKeys(t *testing.T) {
	doc := `
components:
  schemas:
    Base: &base
      type: object
      description: base
    Derived:
      <<: *base
      description: derived
`
	d, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	derived := d.Schemas["Derived"].(map[string]any)
	if derived["type"] != "object" {
		t.Errorf("merged type = %v, want object", derived["type"])
	}
	if derived["description"] != "derived" {
		t.Errorf("description = %v, want derived", derived["description"])
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"syntax", "openapi: [3.1\n"},
		{"sequence root", "- a\n- b\n"},
		{"scalar root", "hello\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
