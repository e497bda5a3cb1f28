// Package schemaimport derives option containers from OpenAPI component
// schemas so settings screens can be generated from an existing API
// contract.
package schemaimport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// Extension keys recognised on schemas and properties.
const (
	ExtensionKey      = "x-optionbuilder"
	OrderExtensionKey = "x-optionbuilder-order"
)

// FromOpenAPI loads an OpenAPI 3 document and maps the properties of the
// component schema schemaName into a container.
func FromOpenAPI(ctx context.Context, data []byte, schemaName string) (field.Container, error) {
	if err := ctx.Err(); err != nil {
		return field.Container{}, err
	}
	if len(data) == 0 {
		return field.Container{}, errors.New("schemaimport: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return field.Container{}, fmt.Errorf("schemaimport: load document: %w", err)
	}
	if doc.Components == nil {
		return field.Container{}, fmt.Errorf("schemaimport: schema %q not found: document has no components", schemaName)
	}
	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return field.Container{}, fmt.Errorf("schemaimport: schema %q not found", schemaName)
	}

	schema := ref.Value
	ext := extension(schema.Extensions)
	container := field.Container{
		ID:          firstNonEmpty(stringValue(ext["id"]), strings.ToLower(schemaName)),
		Title:       firstNonEmpty(schema.Title, schemaName),
		Description: schema.Description,
		Serialize:   stringValue(ext["serialize"]),
		Source:      "openapi:" + schemaName,
	}

	fields, err := convertProperties(schema)
	if err != nil {
		return field.Container{}, fmt.Errorf("schemaimport: schema %q: %w", schemaName, err)
	}
	container.Fields = fields
	return container, nil
}

func convertProperties(schema *openapi3.Schema) ([]field.Spec, error) {
	names := propertyOrder(schema)
	specs := make([]field.Spec, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		spec, err := convertProperty(name, ref.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// propertyOrder lists the names from x-optionbuilder-order first, then the
// remaining properties sorted.
func propertyOrder(schema *openapi3.Schema) []string {
	seen := make(map[string]struct{}, len(schema.Properties))
	var names []string
	if raw, ok := schema.Extensions[OrderExtensionKey].([]any); ok {
		for _, item := range raw {
			name := stringValue(item)
			if _, exists := schema.Properties[name]; !exists {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	var rest []string
	for name := range schema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func convertProperty(name string, schema *openapi3.Schema) (field.Spec, error) {
	spec := field.Spec{
		ID:       name,
		Title:    firstNonEmpty(schema.Title, name),
		Subtitle: schema.Description,
		Default:  schema.Default,
	}

	typ := schemaType(schema.Type)
	switch {
	case len(schema.Enum) > 0:
		spec.Type = "select"
		spec.Options = enumOptions(schema.Enum)
	case typ == "string":
		spec.Type = stringKind(schema.Format)
	case typ == "boolean":
		spec.Type = "switcher"
	case typ == "integer" || typ == "number":
		spec.Type = "number"
	case typ == "object":
		spec.Type = "group"
		children, err := convertProperties(schema)
		if err != nil {
			return field.Spec{}, err
		}
		spec.Fields = children
	case typ == "array":
		if err := convertArray(&spec, schema.Items); err != nil {
			return field.Spec{}, err
		}
	default:
		spec.Type = "text"
	}

	if err := applyExtension(&spec, schema.Extensions); err != nil {
		return field.Spec{}, err
	}
	return spec, nil
}

func convertArray(spec *field.Spec, items *openapi3.SchemaRef) error {
	if items == nil || items.Value == nil {
		spec.Type = "text"
		return nil
	}
	item := items.Value
	switch {
	case schemaType(item.Type) == "object":
		spec.Type = "repeater"
		children, err := convertProperties(item)
		if err != nil {
			return err
		}
		spec.Fields = children
	case len(item.Enum) > 0:
		spec.Type = "checkbox"
		spec.Options = enumOptions(item.Enum)
	default:
		spec.Type = "textarea"
	}
	return nil
}

func stringKind(format string) string {
	switch format {
	case "email":
		return "email"
	case "uri", "url":
		return "url"
	case "password":
		return "password"
	case "color":
		return "color"
	default:
		return "text"
	}
}

// applyExtension overlays the x-optionbuilder block. It goes through
// field.FromMap so dependency and option values are normalised the same way
// as definition files.
func applyExtension(spec *field.Spec, raw map[string]any) error {
	ext := extension(raw)
	if len(ext) == 0 {
		return nil
	}
	overlay, err := field.FromMap(ext)
	if err != nil {
		return fmt.Errorf("decode %s: %w", ExtensionKey, err)
	}
	if overlay.Type != "" {
		spec.Type = overlay.Type
	}
	if overlay.Class != "" {
		spec.Class = overlay.Class
	}
	if overlay.Placeholder != "" {
		spec.Placeholder = overlay.Placeholder
	}
	if overlay.NamePrefix != "" {
		spec.NamePrefix = overlay.NamePrefix
	}
	if len(overlay.Attributes) > 0 {
		spec.Attributes = overlay.Attributes
	}
	if len(overlay.Options) > 0 {
		spec.Options = overlay.Options
	}
	if len(overlay.Dependencies) > 0 {
		spec.Dependencies = overlay.Dependencies
	}
	return nil
}

func extension(raw map[string]any) map[string]any {
	ext, _ := raw[ExtensionKey].(map[string]any)
	return ext
}

func enumOptions(values []any) []field.Option {
	options := make([]field.Option, 0, len(values))
	for _, v := range values {
		s := stringValue(v)
		options = append(options, field.Option{Value: s, Label: s})
	}
	return options
}

func schemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, typ := range types.Slice() {
		if typ != "null" {
			return typ
		}
	}
	return ""
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
