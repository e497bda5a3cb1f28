package builder

import (
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/render/template"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// Option mutates the builder configuration.
type Option func(*Builder)

// WithRegistry swaps the field type registry. The built-in kinds are used
// when no registry is supplied.
func WithRegistry(registry *fieldtype.Registry) Option {
	return func(b *Builder) {
		if registry != nil {
			b.registry = registry
		}
	}
}

// WithResolver configures the value resolver, typically one backed by a
// meta store.
func WithResolver(resolver *value.Resolver) Option {
	return func(b *Builder) {
		if resolver != nil {
			b.resolver = resolver
		}
	}
}

// WithTemplateRenderer injects a template engine. When set, WithTemplatesFS
// is ignored and the engine must be able to resolve the layout and field
// templates itself.
func WithTemplateRenderer(renderer template.TemplateRenderer) Option {
	return func(b *Builder) {
		if renderer != nil {
			b.templates = renderer
		}
	}
}

// WithTemplatesFS adds template overrides searched before the bundled
// layout and field templates.
func WithTemplatesFS(files fs.FS) Option {
	return func(b *Builder) {
		if files != nil {
			b.overrides = append(b.overrides, files)
		}
	}
}

// WithLogger sets the logger used to report recovered field failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithObserver reports recovered field failures, e.g. to a metrics
// collector.
func WithObserver(observer Observer) Option {
	return func(b *Builder) {
		b.observer = observer
	}
}

// WithThemeSelector resolves partial overrides from go-theme manifests.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(b *Builder) {
		b.selector = selector
	}
}

// WithTheme sets the theme and variant requested when RenderOptions leaves
// them blank.
func WithTheme(name, variant string) Option {
	return func(b *Builder) {
		b.themeName = strings.TrimSpace(name)
		b.themeVariant = strings.TrimSpace(variant)
	}
}

// WithSanitizer replaces the policy applied to subtitles and notice
// content. A nil policy disables HTML entirely and escapes instead.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(b *Builder) {
		b.policy = policy
		b.policySet = true
	}
}
