// Package builtin registers the option builder's stock field kinds. Most
// kinds are thin wrappers over an embedded pongo2 template; group and
// repeater compose their children through Data.RenderChild.
package builtin

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// Canonical kind names registered by Register.
const (
	KindText     = "text"
	KindEmail    = "email"
	KindURL      = "url"
	KindNumber   = "number"
	KindPassword = "password"
	KindHidden   = "hidden"
	KindColor    = "color"
	KindTextarea = "textarea"
	KindSelect   = "select"
	KindRadio    = "radio"
	KindCheckbox = "checkbox"
	KindSwitcher = "switcher"
	KindHeading  = "heading"
	KindNotice   = "notice"
	KindGroup    = "group"
	KindRepeater = "repeater"
)

// PartialPrefix namespaces theme partial keys for field templates, e.g.
// "fields.select".
const PartialPrefix = "fields."

const templateDir = "fields/"

// RowPlaceholder is substituted for the row index in the repeater's blank
// template row.
const RowPlaceholder = "__index__"

//go:embed templates/fields/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the field templates rooted so that names resolve as
// "fields/<kind>.tmpl".
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// NewRegistry returns a registry with every built-in kind registered.
func NewRegistry() *fieldtype.Registry {
	registry := fieldtype.NewRegistry()
	if err := Register(registry); err != nil {
		panic(err)
	}
	return registry
}

// Register adds the built-in kinds to registry.
func Register(registry *fieldtype.Registry) error {
	inputs := map[string]string{
		KindText:     "text",
		KindEmail:    "email",
		KindURL:      "url",
		KindNumber:   "number",
		KindPassword: "password",
		KindHidden:   "hidden",
		KindColor:    "color",
	}
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := registry.Register(name, templateKind(name, "input", inputs[name])); err != nil {
			return err
		}
	}

	for _, name := range []string{KindTextarea, KindSelect, KindRadio, KindCheckbox, KindSwitcher, KindHeading} {
		if err := registry.Register(name, templateKind(name, name, "")); err != nil {
			return err
		}
	}

	if err := registry.Register(KindNotice, func() fieldtype.Renderer { return fieldtype.RendererFunc(renderNotice) }); err != nil {
		return err
	}
	if err := registry.Register(KindGroup, func() fieldtype.Renderer { return fieldtype.RendererFunc(renderGroup) }); err != nil {
		return err
	}
	return registry.Register(KindRepeater, func() fieldtype.Renderer { return fieldtype.RendererFunc(renderRepeater) })
}

// templateKind renders kind through templates/fields/<tmpl>.tmpl, honouring a
// theme partial registered for the kind.
func templateKind(kind, tmpl, inputType string) fieldtype.Factory {
	return func() fieldtype.Renderer {
		return fieldtype.RendererFunc(func(_ context.Context, buf *bytes.Buffer, data fieldtype.Data) error {
			payload := basePayload(data)
			if inputType != "" {
				payload["input_type"] = inputType
			}
			return renderTemplate(buf, data, kind, templateDir+tmpl+".tmpl", payload)
		})
	}
}

func renderTemplate(buf *bytes.Buffer, data fieldtype.Data, kind, templateName string, payload map[string]any) error {
	if data.Template == nil {
		return fmt.Errorf("builtin: template renderer not configured for %q", kind)
	}
	resolved := templateName
	if candidate := strings.TrimSpace(data.Partials[PartialPrefix+kind]); candidate != "" {
		resolved = candidate
	}
	rendered, err := data.Template.RenderTemplate(resolved, payload)
	if err != nil {
		return fmt.Errorf("builtin: render %s template %q: %w", kind, resolved, err)
	}
	buf.WriteString(rendered)
	return nil
}

func basePayload(data fieldtype.Data) map[string]any {
	spec := data.Spec
	current := value.Strings(data.Value)
	return map[string]any{
		"id":          spec.ID,
		"control_id":  data.ControlID,
		"name":        data.Name,
		"title":       spec.Title,
		"placeholder": spec.Placeholder,
		"value":       value.String(data.Value),
		"checked":     isChecked(data.Value),
		"multiple":    isMultiple(spec),
		"options":     optionPayload(spec.Options, current),
		"attributes":  Attributes(spec.Attributes),
	}
}

func optionPayload(options []field.Option, current []string) []any {
	if len(options) == 0 {
		return nil
	}
	out := make([]any, 0, len(options))
	for idx, option := range options {
		label := option.Label
		if label == "" {
			label = option.Value
		}
		out = append(out, map[string]any{
			"index":    idx,
			"value":    option.Value,
			"label":    label,
			"selected": slices.Contains(current, option.Value),
		})
	}
	return out
}

func isChecked(v any) bool {
	switch typed := v.(type) {
	case bool:
		return typed
	case nil:
		return false
	default:
		s := strings.ToLower(strings.TrimSpace(value.String(typed)))
		switch s {
		case "", "0", "false", "off", "no":
			return false
		default:
			return true
		}
	}
}

func isMultiple(spec field.Spec) bool {
	if spec.Attributes == nil {
		return false
	}
	_, ok := spec.Attributes["multiple"]
	return ok
}

// Attributes renders extra HTML attributes in sorted order with escaped
// values. Names containing characters outside [A-Za-z0-9-_:] are dropped.
func Attributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if validAttributeName(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var builder strings.Builder
	for _, name := range names {
		builder.WriteByte(' ')
		builder.WriteString(name)
		if v := attrs[name]; v != "" {
			builder.WriteString(`="`)
			builder.WriteString(html.EscapeString(v))
			builder.WriteByte('"')
		}
	}
	return builder.String()
}

func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ':':
		default:
			return false
		}
	}
	return true
}

func renderNotice(_ context.Context, buf *bytes.Buffer, data fieldtype.Data) error {
	payload := basePayload(data)
	content := value.String(data.Value)
	if data.Sanitize != nil {
		content = data.Sanitize(content)
	} else {
		content = html.EscapeString(content)
	}
	payload["content"] = content
	payload["level"] = noticeLevel(data.Spec)
	return renderTemplate(buf, data, KindNotice, templateDir+"notice.tmpl", payload)
}

func noticeLevel(spec field.Spec) string {
	if spec.Attributes != nil {
		switch level := strings.TrimSpace(spec.Attributes["level"]); level {
		case "info", "success", "warning", "error":
			return level
		}
	}
	return "info"
}

func renderGroup(ctx context.Context, buf *bytes.Buffer, data fieldtype.Data) error {
	if data.RenderChild == nil {
		return fmt.Errorf("builtin: group %q requires a child renderer", data.Spec.ID)
	}
	values := asMap(data.Value)
	var children strings.Builder
	for _, child := range data.Spec.Fields {
		children.WriteString(data.RenderChild(ctx, fieldtype.Child{
			Spec:  child,
			Scope: data.ControlID,
			Name:  childName(data.Name, child.ID),
			Value: values[child.ID],
		}))
	}
	payload := basePayload(data)
	payload["children"] = children.String()
	return renderTemplate(buf, data, KindGroup, templateDir+"group.tmpl", payload)
}

func renderRepeater(ctx context.Context, buf *bytes.Buffer, data fieldtype.Data) error {
	if data.RenderChild == nil {
		return fmt.Errorf("builtin: repeater %q requires a child renderer", data.Spec.ID)
	}
	rowsValue := asRows(data.Value)

	renderRow := func(index string, values map[string]any) string {
		var row strings.Builder
		rowName := childName(data.Name, index)
		rowScope := data.ControlID + "_" + index
		for _, child := range data.Spec.Fields {
			row.WriteString(data.RenderChild(ctx, fieldtype.Child{
				Spec:  child,
				Scope: rowScope,
				Name:  childName(rowName, child.ID),
				Value: values[child.ID],
			}))
		}
		return row.String()
	}

	rows := make([]any, 0, len(rowsValue))
	for idx, values := range rowsValue {
		rows = append(rows, map[string]any{
			"index":  idx,
			"markup": renderRow(strconv.Itoa(idx), values),
		})
	}

	payload := basePayload(data)
	payload["rows"] = rows
	payload["template_row"] = renderRow(RowPlaceholder, nil)
	return renderTemplate(buf, data, KindRepeater, templateDir+"repeater.tmpl", payload)
}

func childName(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "[" + child + "]"
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asRows(v any) []map[string]any {
	switch typed := v.(type) {
	case []map[string]any:
		return typed
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
