package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/builder"
	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/metrics"
	"github.com/goliatone/go-optionbuilder/pkg/store/memory"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

var general = field.Container{
	ID:        "general",
	Title:     "General",
	Serialize: "site",
	Fields: []field.Spec{
		{ID: "intro", Type: "heading", Title: "Intro"},
		{ID: "title", Type: "text"},
		{ID: "enabled", Type: "switcher"},
		{ID: "tags", Type: "checkbox", Options: []field.Option{{Value: "a"}, {Value: "b"}}},
		{ID: "layout", Type: "select", Options: []field.Option{{Value: "grid"}, {Value: "list"}}},
	},
}

func setupHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()
	definitions, err := field.NewStore(general)
	if err != nil {
		t.Fatalf("definitions: %v", err)
	}
	st := memory.New()
	b, err := builder.New(builder.WithResolver(value.NewResolver(st)))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	return NewHandler(Deps{Builder: b, Definitions: definitions, Store: st, Logger: zerolog.Nop()}), st
}

func TestHandler_RendersContainerWithStoredOptions(t *testing.T) {
	h, st := setupHandler(t)
	st.SetOption(context.Background(), "title", "Acme")

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/containers/general", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, fragment := range []string{`<form method="post">`, `name="site[title]" value="Acme"`, `<section id="general"`} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("expected %q in body:\n%s", fragment, body)
		}
	}
}

func TestHandler_UnknownContainer(t *testing.T) {
	h, _ := setupHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/containers/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Index(t *testing.T) {
	h, _ := setupHandler(t)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `<a href="/containers/general">General</a>`) {
		t.Fatalf("unexpected index:\n%s", rec.Body.String())
	}
}

func TestHandler_SaveOptions(t *testing.T) {
	h, st := setupHandler(t)
	form := url.Values{
		"site[title]":   {"Acme"},
		"site[enabled]": {"0", "1"},
		"site[tags][]":  {"b"},
		"site[layout]":  {"list"},
	}
	req := httptest.NewRequest(http.MethodPost, "/containers/general", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := st.Options(context.Background())
	want := map[string]any{
		"title":   "Acme",
		"enabled": true,
		"tags":    []string{"b"},
		"layout":  "list",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("saved options mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_SaveEntityMetaUnderSerializeKey(t *testing.T) {
	h, st := setupHandler(t)
	form := url.Values{"site[title]": {"Post title"}, "site[enabled]": {"0"}}
	req := httptest.NewRequest(http.MethodPost, "/containers/general?entity=42", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	scoped, _ := st.GetScoped(context.Background(), "42", "site")
	if scoped["title"] != "Post title" || scoped["enabled"] != false {
		t.Fatalf("unexpected scoped meta: %v", scoped)
	}

	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/containers/general?entity=42", nil))
	if !strings.Contains(rec.Body.String(), `value="Post title"`) {
		t.Fatalf("expected entity meta in render:\n%s", rec.Body.String())
	}
}

func TestSubmittedUsesNamePrefixAndSkipsDisplayKinds(t *testing.T) {
	container := field.Container{
		ID: "box",
		Fields: []field.Spec{
			{ID: "notice", Type: "notice"},
			{ID: "plain", Type: "text"},
			{ID: "custom", Type: "text", NamePrefix: "extra"},
			{ID: "agree", Type: "checkbox"},
		},
	}
	got := Submitted(container, map[string][]string{
		"notice":        {"x"},
		"plain":         {"p"},
		"extra[custom]": {"c"},
		"agree":         {"0", "1"},
	})
	want := map[string]any{"plain": "p", "custom": "c", "agree": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_RecordsMetrics(t *testing.T) {
	definitions, err := field.NewStore(general)
	if err != nil {
		t.Fatalf("definitions: %v", err)
	}
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	b, err := builder.New(builder.WithObserver(collector))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	h := NewHandler(Deps{
		Builder:        b,
		Definitions:    definitions,
		Store:          memory.New(),
		Logger:         zerolog.Nop(),
		Metrics:        collector,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	router := h.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/containers/general", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/containers/nope", nil))

	if got := testutil.ToFloat64(collector.RequestsTotal.WithLabelValues(http.MethodGet, "/containers/{id}", "2xx")); got != 1 {
		t.Fatalf("2xx requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RequestsTotal.WithLabelValues(http.MethodGet, "/containers/{id}", "4xx")); got != 1 {
		t.Fatalf("4xx requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "optionbuilder_requests_total") {
		t.Fatalf("metrics endpoint missing request counter:\n%s", rec.Body.String())
	}
}

func TestHandler_SaveEntityMetaKeepsNestedValues(t *testing.T) {
	look := field.Container{
		ID:        "look",
		Serialize: "look",
		Fields: []field.Spec{
			{ID: "title", Type: "text"},
			{ID: "social", Type: "group", Fields: []field.Spec{{ID: "x", Type: "text"}}},
		},
	}
	definitions, err := field.NewStore(look)
	if err != nil {
		t.Fatalf("definitions: %v", err)
	}
	st := memory.New()
	b, err := builder.New(builder.WithResolver(value.NewResolver(st)))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	router := NewHandler(Deps{Builder: b, Definitions: definitions, Store: st, Logger: zerolog.Nop()}).Router()

	ctx := context.Background()
	st.SetMeta(ctx, "42", "look", map[string]any{
		"title":  "a",
		"social": map[string]any{"x": "keep"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/containers/look?entity=42", nil))
	if !strings.Contains(rec.Body.String(), `name="look[social][x]" value="keep"`) {
		t.Fatalf("expected nested value in render:\n%s", rec.Body.String())
	}

	form := url.Values{"look[title]": {"b"}, "look[social][x]": {"edited"}}
	req := httptest.NewRequest(http.MethodPost, "/containers/look?entity=42", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}

	got, _ := st.GetScoped(ctx, "42", "look")
	want := map[string]any{
		"title":  "b",
		"social": map[string]any{"x": "keep"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scoped meta mismatch (-want +got):\n%s", diff)
	}
}
