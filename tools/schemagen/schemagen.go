// Package main generates JSON schemas for listkit's machine-readable outputs.
package main

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
)

// Schema represents a JSON Schema.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// outputs maps schema file names to the values they describe.
var outputs = map[string]struct {
	title string
	value any
}{
	"report":   {"Diff Report", snapshot.Report{}},
	"snapshot": {"List Snapshot", snapshot.Document{}},
}

func main() {
	outputDir := flag.String("o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		out := outputs[name]

		if err := writeSchema(*outputDir, name, generateSchema(out.title, out.value)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schema for %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schema for %s\n", name)
	}
}

func generateSchema(title string, v any) *Schema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	defs := make(map[string]*Schema)
	props, required := structToProperties(t, defs)

	schema := &Schema{
		Schema:      "https://json-schema.org/draft-07/schema#",
		Title:       title,
		Description: fmt.Sprintf("JSON schema for the listkit %s", strings.ToLower(title)),
		Type:        "object",
		Properties:  props,
		Required:    required,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")

		if jsonTag == "-" || jsonTag == "" {
			continue
		}

		jsonName, opts, _ := strings.Cut(jsonTag, ",")
		props[jsonName] = typeToSchema(field.Type, defs)

		if !strings.Contains(opts, "omitempty") {
			required = append(required, jsonName)
		}
	}

	slices.Sort(required)

	return props, required
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	if t == reflect.TypeFor[listupdate.Kind]() {
		return &Schema{Type: "string", Enum: kindNames()}
	}

	if t.Implements(textMarshalerType) && t.Kind() != reflect.Struct {
		return &Schema{Type: "string"}
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeFor[time.Duration]() {
			return &Schema{Type: "integer", Description: "Duration in nanoseconds"}
		}

		return &Schema{Type: "integer"}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		return &Schema{
			Type:  "array",
			Items: typeToSchema(t.Elem(), defs),
		}

	case reflect.Map:
		return &Schema{
			Type: "object",
			Description: fmt.Sprintf("Map with %s keys and %s values",
				t.Key().Kind().String(), t.Elem().Kind().String()),
		}

	case reflect.Interface:
		return &Schema{Description: "Any JSON value"}

	case reflect.Struct:
		if t == reflect.TypeFor[time.Time]() {
			return &Schema{Type: "string", Description: "ISO 8601 timestamp"}
		}

		defName := t.Name()
		if defName == "" {
			props, required := structToProperties(t, defs)

			return &Schema{Type: "object", Properties: props, Required: required}
		}

		if _, exists := defs[defName]; !exists {
			// Reserve the name first so self-referencing types terminate.
			defs[defName] = &Schema{Type: "object"}
			props, required := structToProperties(t, defs)
			defs[defName] = &Schema{Type: "object", Properties: props, Required: required}
		}

		return &Schema{Ref: "#/definitions/" + defName}

	case reflect.Ptr:
		return typeToSchema(t.Elem(), defs)

	default:
		return &Schema{Type: "object"}
	}
}

func kindNames() []string {
	var names []string

	for kind := listupdate.KindInsert; kind <= listupdate.KindChange; kind++ {
		names = append(names, kind.String())
	}

	return names
}

func writeSchema(dir, name string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	path := filepath.Join(dir, name+".json")

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
