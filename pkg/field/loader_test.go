package field

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFSParsesYAMLAndJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"general.yaml": {Data: []byte(`
containers:
  general:
    title: General
    serialize: site_options
    fields:
      - type: switcher
        id: enable_banner
        title: Enable banner
        default: true
      - type: text
        id: banner_text
        title: Banner text
        dependencies:
          - controller: enable_banner
            value: true
`)},
		"layout.json": {Data: []byte(`{"containers":{"layout":{"title":"Layout","fields":[{"type":"select","id":"columns","options":[1,2,{"value":"3","label":"Three"}]}]}}}`)},
		"README.md":   {Data: []byte("ignored")},
	}

	store, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"general", "layout"}, store.IDs()); diff != "" {
		t.Fatalf("container ids mismatch (-want +got):\n%s", diff)
	}

	general, ok := store.Container("general")
	if !ok {
		t.Fatalf("expected general container")
	}
	if general.Serialize != "site_options" {
		t.Fatalf("serialize mismatch: %q", general.Serialize)
	}
	if general.Source != "general.yaml" {
		t.Fatalf("source mismatch: %q", general.Source)
	}
	if len(general.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(general.Fields))
	}
	wantDeps := []Dependency{{Controller: "enable_banner", Value: "1"}}
	if diff := cmp.Diff(wantDeps, general.Fields[1].Dependencies); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if general.Fields[0].Default != true {
		t.Fatalf("default not preserved: %#v", general.Fields[0].Default)
	}

	layout, _ := store.Container("layout")
	wantOptions := []Option{
		{Value: "1", Label: "1"},
		{Value: "2", Label: "2"},
		{Value: "3", Label: "Three"},
	}
	if diff := cmp.Diff(wantOptions, layout.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFSRejectsDuplicateContainers(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("containers:\n  general:\n    fields: []\n")},
		"b.yaml": {Data: []byte("containers:\n  general:\n    fields: []\n")},
	}
	_, err := LoadFS(fsys)
	if err == nil || !strings.Contains(err.Error(), `duplicate container "general"`) {
		t.Fatalf("expected duplicate container error, got %v", err)
	}
}

func TestLoadFSRejectsDuplicateFieldIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("containers:\n  general:\n    fields:\n      - {type: text, id: a}\n      - {type: text, id: a}\n")},
	}
	_, err := LoadFS(fsys)
	if err == nil || !strings.Contains(err.Error(), `field "a" more than once`) {
		t.Fatalf("expected duplicate field error, got %v", err)
	}
}

func TestLoadFSRejectsEmptyFile(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"empty.yaml": {Data: []byte("  \n")}})
	if err == nil {
		t.Fatalf("expected error for empty definition file")
	}
}

func TestLoadFSNilFilesystem(t *testing.T) {
	store, err := LoadFS(nil)
	if err != nil {
		t.Fatalf("LoadFS(nil) returned error: %v", err)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store")
	}
}

func TestFromMapNestedFields(t *testing.T) {
	spec, err := FromMap(map[string]any{
		"type": "repeater",
		"id":   "slides",
		"fields": []any{
			map[string]any{
				"type": "text",
				"id":   "caption",
				"dependencies": []any{
					map[string]any{"controller": "kind", "value": 2, "action": "hide"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("FromMap returned error: %v", err)
	}
	if len(spec.Fields) != 1 {
		t.Fatalf("expected nested field, got %d", len(spec.Fields))
	}
	got := spec.Fields[0].Dependencies[0]
	if got.Value != "2" || got.Action != "hide" {
		t.Fatalf("unexpected nested dependency: %+v", got)
	}
}

func TestDependencyNormalizedDefaults(t *testing.T) {
	got := Dependency{Controller: " mode "}.Normalized()
	want := Dependency{Controller: "mode", Condition: "==", Action: "show"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalized mismatch (-want +got):\n%s", diff)
	}
}
