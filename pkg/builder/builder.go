package builder

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/dependency"
	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype/builtin"
	"github.com/goliatone/go-optionbuilder/pkg/render/template"
	"github.com/goliatone/go-optionbuilder/pkg/render/template/pongo"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// Layout template names and the theme partial keys that override them.
const (
	TemplateField     = "layout/field.tmpl"
	TemplateContainer = "layout/container.tmpl"
	TemplateError     = "layout/error.tmpl"

	PartialField     = "layout.field"
	PartialContainer = "layout.container"
	PartialError     = "layout.error"
)

// DefaultScope prefixes control ids of fields rendered outside a container.
const DefaultScope = "field"

//go:embed templates/layout/*.tmpl
var embeddedLayouts embed.FS

// TemplatesFS exposes the layout templates so names resolve as
// "layout/<name>.tmpl".
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedLayouts, "templates")
	if err != nil {
		return embeddedLayouts
	}
	return sub
}

// RenderOptions carries the per-request inputs shared by every field of a
// render pass.
type RenderOptions struct {
	// Values holds explicit values keyed by field id. They win over every
	// stored source.
	Values map[string]any
	// Options is the stored option mapping consulted when EntityID is empty.
	Options map[string]any
	// EntityID switches value lookup to the meta store.
	EntityID string
	// Scope overrides the dependency scope of top-level fields. RenderContainer
	// defaults it to the container id, RenderField to DefaultScope.
	Scope string

	Theme   string
	Variant string
}

// Observer is notified once per field replaced by the error block. reason is
// one of "missing_type", "unknown_type" or "render_error".
type Observer interface {
	FieldFailed(kind, reason string)
}

// Builder renders field specs and containers into markup.
type Builder struct {
	registry  *fieldtype.Registry
	resolver  *value.Resolver
	templates template.TemplateRenderer
	overrides []fs.FS
	logger    zerolog.Logger
	observer  Observer

	selector     theme.ThemeSelector
	themeName    string
	themeVariant string

	policy    *bluemonday.Policy
	policySet bool
}

// pass holds the state shared by one RenderField or RenderContainer call.
type pass struct {
	opts         RenderOptions
	partials     map[string]string
	containerID  string
	containerKey string
	prefix       string
}

// New constructs a builder. Defaults: the built-in kinds, a resolver without
// a meta store, a pongo2 engine over the bundled templates, the bluemonday
// UGC policy and a disabled logger.
func New(options ...Option) (*Builder, error) {
	b := &Builder{logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}

	if b.registry == nil {
		b.registry = builtin.NewRegistry()
	}
	if b.resolver == nil {
		b.resolver = value.NewResolver(nil)
	}
	if !b.policySet {
		b.policy = bluemonday.UGCPolicy()
	}
	if b.templates == nil {
		engineOptions := make([]pongo.Option, 0, len(b.overrides)+2)
		for _, files := range b.overrides {
			engineOptions = append(engineOptions, pongo.WithFS(files))
		}
		engineOptions = append(engineOptions,
			pongo.WithFS(TemplatesFS()),
			pongo.WithFS(builtin.TemplatesFS()),
		)
		engine, err := pongo.New(engineOptions...)
		if err != nil {
			return nil, fmt.Errorf("builder: create template engine: %w", err)
		}
		b.templates = engine
	}
	return b, nil
}

// Registry exposes the field type registry so callers can add kinds.
func (b *Builder) Registry() *fieldtype.Registry {
	return b.registry
}

// RenderField renders a single field with its chrome. Failures are
// recovered into an inline error block.
func (b *Builder) RenderField(ctx context.Context, spec field.Spec, opts RenderOptions) string {
	p := &pass{
		opts:     opts,
		partials: b.themePartials(opts),
		prefix:   strings.TrimSpace(spec.NamePrefix),
	}
	scope := firstNonEmpty(opts.Scope, DefaultScope)
	explicit, hasExplicit := opts.Values[spec.ID]
	return b.renderField(ctx, p, spec, scope, inputName(p.prefix, spec.ID), explicit, hasExplicit, false)
}

// RenderContainer renders every field of container in order inside the
// container shell. Individual field failures never fail the call.
func (b *Builder) RenderContainer(ctx context.Context, container field.Container, opts RenderOptions) ([]byte, error) {
	p := &pass{
		opts:         opts,
		partials:     b.themePartials(opts),
		containerID:  strings.TrimSpace(container.ID),
		containerKey: strings.TrimSpace(container.Serialize),
		prefix:       strings.TrimSpace(container.Serialize),
	}
	scope := firstNonEmpty(opts.Scope, p.containerID, DefaultScope)

	var fields strings.Builder
	for _, spec := range container.Fields {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("builder: render container %q: %w", container.ID, err)
		}
		prefix := firstNonEmpty(spec.NamePrefix, p.prefix)
		explicit, hasExplicit := opts.Values[spec.ID]
		fields.WriteString(b.renderField(ctx, p, spec, scope, inputName(prefix, spec.ID), explicit, hasExplicit, false))
	}

	selectedTheme := firstNonEmpty(opts.Theme, b.themeName)
	selectedVariant := firstNonEmpty(opts.Variant, b.themeVariant)
	var buf bytes.Buffer
	_, err := b.templates.RenderTemplate(p.template(PartialContainer, TemplateContainer), map[string]any{
		"id":          container.ID,
		"title":       container.Title,
		"description": container.Description,
		"serialize":   container.Serialize,
		"fields":      fields.String(),
		"theme":       selectedTheme,
		"variant":     selectedVariant,
	}, &buf)
	if err != nil {
		return nil, fmt.Errorf("builder: render container %q: %w", container.ID, err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) renderField(ctx context.Context, p *pass, spec field.Spec, scope, name string, explicit any, hasExplicit, nested bool) string {
	renderer, err := b.registry.Resolve(spec.Type)
	if err != nil {
		return b.fail(p, spec, attachFieldID(err, spec.ID))
	}

	req := value.Request{Explicit: explicit, HasExplicit: hasExplicit}
	if !nested {
		req.Options = p.opts.Options
		req.EntityID = p.opts.EntityID
		req.ContainerKey = p.containerKey
	}
	resolved, err := b.resolver.Resolve(ctx, spec, req)
	if err != nil {
		return b.fail(p, spec, err)
	}

	controlID := scope
	if id := strings.TrimSpace(spec.ID); id != "" {
		controlID = scope + "_" + id
	}
	directive := dependency.Encode(spec.Dependencies, scope, p.containerID)
	kind := fieldtype.Classify(spec.Type)

	var control bytes.Buffer
	err = renderer.Render(ctx, &control, fieldtype.Data{
		Spec:      spec,
		Kind:      kind,
		Value:     resolved,
		Name:      name,
		ControlID: controlID,
		Directive: directive,
		Template:  b.templates,
		Partials:  p.partials,
		RenderChild: func(ctx context.Context, child fieldtype.Child) string {
			return b.renderField(ctx, p, child.Spec, child.Scope, child.Name, child.Value, child.Value != nil, true)
		},
		Sanitize: b.sanitize,
	})
	if err != nil {
		return b.fail(p, spec, fmt.Errorf("builder: render field %q: %w", spec.ID, err))
	}

	out, err := b.templates.RenderTemplate(p.template(PartialField, TemplateField), map[string]any{
		"id":         spec.ID,
		"control_id": controlID,
		"kind":       strings.ToLower(kind),
		"class":      spec.Class,
		"title":      spec.Title,
		"subtitle":   b.sanitize(spec.Subtitle),
		"control":    control.String(),
		"dependency": builtin.Attributes(directive.Attributes()),
	})
	if err != nil {
		return b.fail(p, spec, fmt.Errorf("builder: wrap field %q: %w", spec.ID, err))
	}
	return out
}

// fail logs err and renders the inline error block in place of the field.
func (b *Builder) fail(p *pass, spec field.Spec, err error) string {
	b.logger.Warn().
		Err(err).
		Str("field", spec.ID).
		Str("type", spec.Type).
		Str("container", p.containerID).
		Msg("optionbuilder: field render failed")

	if b.observer != nil {
		b.observer.FieldFailed(fieldtype.Classify(spec.Type), failureReason(err))
	}

	message := errorMessage(err)
	out, renderErr := b.templates.RenderTemplate(p.template(PartialError, TemplateError), map[string]any{
		"field_id": spec.ID,
		"title":    spec.Title,
		"message":  message,
	})
	if renderErr != nil {
		b.logger.Error().Err(renderErr).Str("field", spec.ID).Msg("optionbuilder: error block render failed")
		return `<div class="ob-field ob-field-error" role="alert">` + html.EscapeString(message) + `</div>`
	}
	return out
}

func errorMessage(err error) string {
	var unknown *fieldtype.UnknownFieldTypeError
	switch {
	case errors.Is(err, fieldtype.ErrMissingFieldType):
		return "Field type is missing."
	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown field type %q.", unknown.Type)
	default:
		return "This field could not be rendered."
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, fieldtype.ErrMissingFieldType):
		return "missing_type"
	case errors.Is(err, fieldtype.ErrUnknownFieldType):
		return "unknown_type"
	default:
		return "render_error"
	}
}

func attachFieldID(err error, fieldID string) error {
	var missing *fieldtype.MissingFieldTypeError
	if errors.As(err, &missing) && missing.FieldID == "" {
		missing.FieldID = fieldID
	}
	var unknown *fieldtype.UnknownFieldTypeError
	if errors.As(err, &unknown) && unknown.FieldID == "" {
		unknown.FieldID = fieldID
	}
	return err
}

func (b *Builder) sanitize(in string) string {
	if in == "" {
		return ""
	}
	if b.policy == nil {
		return html.EscapeString(in)
	}
	return b.policy.Sanitize(in)
}

// themePartials merges the selected manifest's templates with its variant's
// overrides. Selection failures are logged and fall back to the bundled
// templates.
func (b *Builder) themePartials(opts RenderOptions) map[string]string {
	if b.selector == nil {
		return nil
	}
	name := firstNonEmpty(opts.Theme, b.themeName)
	variant := firstNonEmpty(opts.Variant, b.themeVariant)

	selection, err := b.selector.Select(name, variant)
	if err != nil {
		b.logger.Warn().Err(err).Str("theme", name).Str("variant", variant).Msg("optionbuilder: theme selection failed")
		return nil
	}
	if selection == nil || selection.Manifest == nil {
		return nil
	}

	partials := make(map[string]string, len(selection.Manifest.Templates))
	for key, path := range selection.Manifest.Templates {
		partials[key] = path
	}
	if v, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, path := range v.Templates {
			partials[key] = path
		}
	}
	return partials
}

func (p *pass) template(partialKey, fallback string) string {
	if candidate := strings.TrimSpace(p.partials[partialKey]); candidate != "" {
		return candidate
	}
	return fallback
}

func inputName(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "[" + id + "]"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
