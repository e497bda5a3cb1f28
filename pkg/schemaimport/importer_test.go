package schemaimport

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

const settingsDocument = `
openapi: 3.0.3
info:
  title: Settings
  version: 1.0.0
paths: {}
components:
  schemas:
    SiteSettings:
      title: Site settings
      description: General site configuration
      x-optionbuilder:
        id: general
        serialize: site
      x-optionbuilder-order: [title, missing, enabled]
      type: object
      properties:
        title:
          type: string
          title: Site title
          description: Shown in the header
          default: Acme
        enabled:
          type: boolean
        contact:
          type: string
          format: email
        layout:
          type: string
          enum: [grid, list]
        per_page:
          type: integer
          default: 10
        label:
          type: string
          x-optionbuilder:
            type: textarea
            class: wide
            dependencies:
              - controller: enabled
                value: true
        address:
          type: object
          properties:
            zip:
              type: string
            city:
              type: string
        slides:
          type: array
          items:
            type: object
            properties:
              caption:
                type: string
        tags:
          type: array
          items:
            type: string
            enum: [news, blog]
`

func TestFromOpenAPIMapsProperties(t *testing.T) {
	container, err := FromOpenAPI(context.Background(), []byte(settingsDocument), "SiteSettings")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if container.ID != "general" || container.Serialize != "site" || container.Title != "Site settings" {
		t.Fatalf("unexpected container header: %+v", container)
	}
	if container.Description != "General site configuration" {
		t.Fatalf("unexpected description %q", container.Description)
	}

	var ids, types []string
	for _, spec := range container.Fields {
		ids = append(ids, spec.ID)
		types = append(types, spec.Type)
	}
	wantIDs := []string{"title", "enabled", "address", "contact", "label", "layout", "per_page", "slides", "tags"}
	wantTypes := []string{"text", "switcher", "group", "email", "textarea", "select", "number", "repeater", "checkbox"}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("field types mismatch (-want +got):\n%s", diff)
	}

	byID := make(map[string]field.Spec, len(container.Fields))
	for _, spec := range container.Fields {
		byID[spec.ID] = spec
	}

	title := byID["title"]
	if title.Title != "Site title" || title.Subtitle != "Shown in the header" || title.Default != "Acme" {
		t.Fatalf("unexpected title spec: %+v", title)
	}
	if diff := cmp.Diff([]field.Option{{Value: "grid", Label: "grid"}, {Value: "list", Label: "list"}}, byID["layout"].Options); diff != "" {
		t.Fatalf("enum options mismatch (-want +got):\n%s", diff)
	}

	label := byID["label"]
	if label.Class != "wide" {
		t.Fatalf("expected extension class, got %q", label.Class)
	}
	if diff := cmp.Diff([]field.Dependency{{Controller: "enabled", Value: "1"}}, label.Dependencies); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}

	var children []string
	for _, child := range byID["address"].Fields {
		children = append(children, child.ID)
	}
	if diff := cmp.Diff([]string{"city", "zip"}, children); diff != "" {
		t.Fatalf("group children mismatch (-want +got):\n%s", diff)
	}
	if slides := byID["slides"].Fields; len(slides) != 1 || slides[0].ID != "caption" {
		t.Fatalf("unexpected repeater children: %+v", slides)
	}
}

func TestFromOpenAPIDefaultsContainerID(t *testing.T) {
	doc := `{"openapi":"3.0.3","info":{"title":"x","version":"1"},"paths":{},"components":{"schemas":{"Mail":{"type":"object","properties":{"host":{"type":"string"}}}}}}`
	container, err := FromOpenAPI(context.Background(), []byte(doc), "Mail")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if container.ID != "mail" || container.Title != "Mail" || container.Source != "openapi:Mail" {
		t.Fatalf("unexpected container: %+v", container)
	}
}

func TestFromOpenAPIErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := FromOpenAPI(ctx, nil, "X"); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := FromOpenAPI(ctx, []byte(settingsDocument), "Missing"); err == nil || !strings.Contains(err.Error(), `"Missing"`) {
		t.Fatalf("expected missing schema error, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := FromOpenAPI(canceled, []byte(settingsDocument), "SiteSettings"); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
