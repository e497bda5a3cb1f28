package fieldtype

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/goliatone/go-optionbuilder/pkg/dependency"
	"github.com/goliatone/go-optionbuilder/pkg/field"
	rendertemplate "github.com/goliatone/go-optionbuilder/pkg/render/template"
)

// Renderer writes the control markup for a single field. Implementations
// receive the resolved value and rendering helpers through Data.
type Renderer interface {
	Render(ctx context.Context, buf *bytes.Buffer, data Data) error
}

// RendererFunc adapts a function into a Renderer.
type RendererFunc func(ctx context.Context, buf *bytes.Buffer, data Data) error

// Render delegates to the underlying function.
func (fn RendererFunc) Render(ctx context.Context, buf *bytes.Buffer, data Data) error {
	return fn(ctx, buf, data)
}

// Factory constructs a renderer instance for a field kind.
type Factory func() Renderer

// Data carries the resolved state and helpers handed to a Renderer.
type Data struct {
	Spec      field.Spec
	Kind      string
	Value     any
	Name      string
	ControlID string
	Directive dependency.Directive

	Template rendertemplate.TemplateRenderer
	// Partials maps partial keys (fields.<kind>) to template overrides.
	Partials map[string]string
	// RenderChild renders a nested spec through the full field pipeline.
	RenderChild func(ctx context.Context, child Child) string
	// Sanitize cleans author-supplied HTML.
	Sanitize func(string) string
}

// Child describes a nested field rendered on behalf of a group or repeater.
// Scope prefixes the child's control id and dependency keys; a nil Value
// lets the child fall back to its own default.
type Child struct {
	Spec  field.Spec
	Scope string
	Name  string
	Value any
}

// Registry tracks field renderer factories keyed by their canonical kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates a factory with the canonical form of name. Duplicate
// kinds are rejected so misconfiguration surfaces at startup.
func (r *Registry) Register(name string, factory Factory) error {
	kind := Classify(name)
	if kind == "" {
		return fmt.Errorf("fieldtype: field type name is required")
	}
	if factory == nil {
		return fmt.Errorf("fieldtype: factory for %q is nil", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("fieldtype: field type %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve returns a renderer for typeName. It fails with
// *MissingFieldTypeError for a blank name and *UnknownFieldTypeError when no
// factory is registered for the canonical kind.
func (r *Registry) Resolve(typeName string) (Renderer, error) {
	if strings.TrimSpace(typeName) == "" {
		return nil, &MissingFieldTypeError{}
	}
	kind := Classify(typeName)
	if r == nil {
		return nil, &UnknownFieldTypeError{Type: typeName, Kind: kind}
	}

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFieldTypeError{Type: typeName, Kind: kind}
	}

	renderer := factory()
	if renderer == nil {
		return nil, &UnknownFieldTypeError{Type: typeName, Kind: kind}
	}
	return renderer, nil
}

// Has reports whether a factory is registered for typeName. A nil registry
// has none.
func (r *Registry) Has(typeName string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[Classify(typeName)]
	return ok
}

// Kinds returns the sorted canonical kinds.
func (r *Registry) Kinds() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Classify converts a field type name into its canonical kind:
// "color-picker", "color_picker" and "ColorPicker" all become "ColorPicker".
func Classify(name string) string {
	words := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	var builder strings.Builder
	for _, word := range words {
		runes := []rune(word)
		builder.WriteRune(unicode.ToUpper(runes[0]))
		builder.WriteString(string(runes[1:]))
	}
	return builder.String()
}
