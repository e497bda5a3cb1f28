// Package testsupport holds fixture and golden-file helpers shared by the
// package tests.
package testsupport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// MustLoadContainer loads the definitions under dir and returns the container
// with the given id, failing the test when either step fails.
func MustLoadContainer(t *testing.T, dir, id string) field.Container {
	t.Helper()

	container, err := LoadContainer(dir, id)
	if err != nil {
		t.Fatalf("load container: %v", err)
	}
	return container
}

// LoadContainer returns a container without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadContainer(dir, id string) (field.Container, error) {
	if dir == "" {
		return field.Container{}, errors.New("testsupport: definitions dir is required")
	}
	defs, err := field.LoadFS(os.DirFS(dir))
	if err != nil {
		return field.Container{}, fmt.Errorf("testsupport: load definitions: %w", err)
	}
	container, ok := defs.Container(id)
	if !ok {
		return field.Container{}, fmt.Errorf("testsupport: container %q not found in %s", id, dir)
	}
	return container, nil
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareJSONGolden marshals got and diffs it against the JSON golden at
// path. Both sides are decoded first so formatting differences are ignored.
func CompareJSONGolden(t *testing.T, path string, got any) string {
	t.Helper()

	payload, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal value: %v", err)
	}
	var gotDecoded, wantDecoded any
	if err := json.Unmarshal(payload, &gotDecoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if err := json.Unmarshal(MustReadGolden(t, path), &wantDecoded); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	return cmp.Diff(wantDecoded, gotDecoded)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
