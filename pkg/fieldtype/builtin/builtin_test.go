package builtin

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/render/template/pongo"
)

func newEngine(t *testing.T, extra ...pongo.Option) *pongo.Engine {
	t.Helper()
	engine, err := pongo.New(append(extra, pongo.WithFS(TemplatesFS()))...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func render(t *testing.T, data fieldtype.Data) string {
	t.Helper()
	registry := NewRegistry()
	renderer, err := registry.Resolve(data.Spec.Type)
	if err != nil {
		t.Fatalf("resolve %q: %v", data.Spec.Type, err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(context.Background(), &buf, data); err != nil {
		t.Fatalf("render %q: %v", data.Spec.Type, err)
	}
	return buf.String()
}

func TestRegistryHasAllKinds(t *testing.T) {
	want := []string{
		"Checkbox", "Color", "Email", "Group", "Heading", "Hidden", "Notice", "Number",
		"Password", "Radio", "Repeater", "Select", "Switcher", "Text", "Textarea", "Url",
	}
	if diff := cmp.Diff(want, NewRegistry().Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTextInput(t *testing.T) {
	got := render(t, fieldtype.Data{
		Spec: field.Spec{
			Type:        "text",
			ID:          "title",
			Placeholder: "Site title",
			Attributes:  map[string]string{"maxlength": "60", "bad attr": "x", "data-note": `a"b`},
		},
		Value:     `Acme & Co`,
		Name:      "site[title]",
		ControlID: "general_title",
		Template:  newEngine(t),
	})

	want := `<input type="text" id="general_title" name="site[title]" value="Acme &amp; Co" placeholder="Site title" class="ob-input" data-note="a&#34;b" maxlength="60">`
	if strings.TrimSpace(got) != want {
		t.Fatalf("markup mismatch:\nwant %s\ngot  %s", want, strings.TrimSpace(got))
	}
}

func TestRenderSelectMarksSelectedOptions(t *testing.T) {
	got := render(t, fieldtype.Data{
		Spec: field.Spec{
			Type:       "select",
			ID:         "layout",
			Options:    []field.Option{{Value: "grid", Label: "Grid"}, {Value: "list"}},
			Attributes: map[string]string{"multiple": ""},
		},
		Value:     []any{"list"},
		Name:      "layout",
		ControlID: "general_layout",
		Template:  newEngine(t),
	})

	for _, fragment := range []string{
		`name="layout[]"`,
		` multiple>`,
		`<option value="grid">Grid</option>`,
		`<option value="list" selected>list</option>`,
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in markup:\n%s", fragment, got)
		}
	}
}

func TestRenderSwitcherChecked(t *testing.T) {
	for _, tc := range []struct {
		value   any
		checked bool
	}{
		{value: true, checked: true},
		{value: "1", checked: true},
		{value: "0", checked: false},
		{value: "", checked: false},
		{value: false, checked: false},
	} {
		got := render(t, fieldtype.Data{
			Spec:      field.Spec{Type: "switcher", ID: "enabled"},
			Value:     tc.value,
			Name:      "enabled",
			ControlID: "box_enabled",
			Template:  newEngine(t),
		})
		if strings.Contains(got, " checked") != tc.checked {
			t.Fatalf("value %#v: checked mismatch in %s", tc.value, got)
		}
		if !strings.Contains(got, `<input type="hidden" name="enabled" value="0">`) {
			t.Fatalf("expected hidden fallback input: %s", got)
		}
	}
}

func TestRenderNoticeSanitizes(t *testing.T) {
	got := render(t, fieldtype.Data{
		Spec:      field.Spec{Type: "notice", ID: "intro", Attributes: map[string]string{"level": "warning"}},
		Value:     `<b>Careful</b>`,
		ControlID: "box_intro",
		Template:  newEngine(t),
		Sanitize: func(s string) string {
			return strings.ReplaceAll(s, "b>", "strong>")
		},
	})
	if !strings.Contains(got, `class="ob-notice ob-notice-warning"`) {
		t.Fatalf("expected warning level: %s", got)
	}
	if !strings.Contains(got, `<strong>Careful</strong>`) {
		t.Fatalf("expected sanitized content: %s", got)
	}

	escaped := render(t, fieldtype.Data{
		Spec:     field.Spec{Type: "notice", ID: "intro"},
		Value:    `<script>x</script>`,
		Template: newEngine(t),
	})
	if strings.Contains(escaped, "<script>") {
		t.Fatalf("expected escaped content without sanitizer: %s", escaped)
	}
}

func TestRenderRepeaterRows(t *testing.T) {
	var children []fieldtype.Child
	got := render(t, fieldtype.Data{
		Spec: field.Spec{
			Type:   "repeater",
			ID:     "slides",
			Fields: []field.Spec{{Type: "text", ID: "caption"}},
		},
		Value: []any{
			map[string]any{"caption": "First"},
			map[string]any{"caption": "Second"},
		},
		Name:      "site[slides]",
		ControlID: "box_slides",
		Template:  newEngine(t),
		RenderChild: func(_ context.Context, child fieldtype.Child) string {
			children = append(children, child)
			return "<child " + child.Name + ">"
		},
	})

	wantNames := []string{
		"site[slides][0][caption]",
		"site[slides][1][caption]",
		"site[slides][__index__][caption]",
	}
	var gotNames []string
	for _, child := range children {
		gotNames = append(gotNames, child.Name)
	}
	if diff := cmp.Diff(wantNames, gotNames); diff != "" {
		t.Fatalf("child names mismatch (-want +got):\n%s", diff)
	}
	if children[1].Scope != "box_slides_1" || children[1].Value != "Second" {
		t.Fatalf("unexpected second child: %+v", children[1])
	}
	if children[2].Value != nil {
		t.Fatalf("template row should not carry values: %+v", children[2])
	}
	if !strings.Contains(got, `data-repeater-index="1"`) || !strings.Contains(got, `<template class="ob-repeater-template">`) {
		t.Fatalf("unexpected repeater markup:\n%s", got)
	}
}

func TestRenderGroupChildren(t *testing.T) {
	got := render(t, fieldtype.Data{
		Spec: field.Spec{
			Type:   "group",
			ID:     "address",
			Fields: []field.Spec{{Type: "text", ID: "city"}, {Type: "text", ID: "zip"}},
		},
		Value:     map[string]any{"city": "Oslo"},
		Name:      "address",
		ControlID: "box_address",
		Template:  newEngine(t),
		RenderChild: func(_ context.Context, child fieldtype.Child) string {
			return "[" + child.Scope + "|" + child.Name + "|" + toString(child.Value) + "]"
		},
	})
	if !strings.Contains(got, "[box_address|address[city]|Oslo][box_address|address[zip]|]") {
		t.Fatalf("unexpected group markup:\n%s", got)
	}
}

func TestRenderGroupRequiresChildRenderer(t *testing.T) {
	renderer, err := NewRegistry().Resolve("group")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(context.Background(), &buf, fieldtype.Data{Spec: field.Spec{ID: "g"}}); err == nil {
		t.Fatalf("expected error without child renderer")
	}
}

func TestThemePartialOverride(t *testing.T) {
	override := fstest.MapFS{
		"themes/acme/text.tmpl": {Data: []byte(`<acme-input name="{{ name }}">`)},
	}
	got := render(t, fieldtype.Data{
		Spec:     field.Spec{Type: "text", ID: "title"},
		Name:     "title",
		Template: newEngine(t, pongo.WithFS(override)),
		Partials: map[string]string{"fields.text": "themes/acme/text.tmpl"},
	})
	if got != `<acme-input name="title">` {
		t.Fatalf("expected partial override, got %q", got)
	}
}

func TestRenderWithoutTemplateFails(t *testing.T) {
	renderer, err := NewRegistry().Resolve("text")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(context.Background(), &buf, fieldtype.Data{Spec: field.Spec{ID: "t"}}); err == nil {
		t.Fatalf("expected error without template renderer")
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
