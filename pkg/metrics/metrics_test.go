package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-optionbuilder/pkg/metrics"
)

func TestFieldFailed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.FieldFailed("", "missing_type")
	m.FieldFailed("ColorPicker", "unknown_type")
	m.FieldFailed("ColorPicker", "unknown_type")

	if got := testutil.ToFloat64(m.FieldFailures.WithLabelValues("ColorPicker", "unknown_type")); got != 2 {
		t.Fatalf("unknown_type failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FieldFailures.WithLabelValues("none", "missing_type")); got != 1 {
		t.Fatalf("missing_type failures = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "optionbuilder_field_failures_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Fatalf("expected 2 series, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Fatalf("optionbuilder_field_failures_total not registered")
	}
}

func TestDefinitionsReloaded(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.DefinitionsReloaded(3, nil)
	m.DefinitionsReloaded(0, errors.New("parse failed"))

	if got := testutil.ToFloat64(m.DefinitionReloads); got != 1 {
		t.Fatalf("reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DefinitionReloadErrors); got != 1 {
		t.Fatalf("reload errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DefinitionContainers); got != 3 {
		t.Fatalf("containers = %v, want 3", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var m *metrics.Collector
	m.FieldFailed("Text", "render_error")
	m.DefinitionsReloaded(1, nil)
}

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{101: "1xx", 200: "2xx", 303: "3xx", 404: "4xx", 500: "5xx"}
	for code, want := range cases {
		if got := metrics.StatusLabel(code); got != want {
			t.Fatalf("StatusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}
