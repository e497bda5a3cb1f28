// Package preview serves rendered option containers over HTTP and saves
// submitted values back into an option store.
package preview

import (
	"fmt"
	"html"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/builder"
	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype/builtin"
	"github.com/goliatone/go-optionbuilder/pkg/metrics"
	"github.com/goliatone/go-optionbuilder/pkg/store"
)

// Definitions looks up containers by id. *field.Store and
// *definitions.Holder both satisfy it.
type Definitions interface {
	Container(id string) (field.Container, bool)
	IDs() []string
}

// Deps contains the handler dependencies.
type Deps struct {
	Builder     *builder.Builder
	Definitions Definitions
	Store       store.Store
	Logger      zerolog.Logger

	// Metrics records request counts and durations when set.
	Metrics *metrics.Collector
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Handler renders containers at /containers/{id}.
type Handler struct {
	builder        *builder.Builder
	definitions    Definitions
	store          store.Store
	logger         zerolog.Logger
	metrics        *metrics.Collector
	metricsHandler http.Handler
}

// NewHandler creates a preview handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		builder:        deps.Builder,
		definitions:    deps.Definitions,
		store:          deps.Store,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
	}
}

// Router returns the preview router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.measure)
	}
	if h.metricsHandler != nil {
		r.Handle("/metrics", h.metricsHandler)
	}
	r.Get("/", h.Index)
	r.Get("/containers/{id}", h.Container)
	r.Post("/containers/{id}", h.Save)
	return r
}

// measure records request metrics labelled by the matched route pattern.
func (h *Handler) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusLabel(status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Index lists the known containers.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("<!doctype html><html><body><ul>\n")
	for _, id := range h.definitions.IDs() {
		container, _ := h.definitions.Container(id)
		title := container.Title
		if title == "" {
			title = id
		}
		fmt.Fprintf(&b, "<li><a href=\"/containers/%s\">%s</a></li>\n", html.EscapeString(id), html.EscapeString(title))
	}
	b.WriteString("</ul></body></html>\n")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

// Container renders a single container inside a form. The optional entity,
// theme and variant query parameters are passed through to the builder.
func (h *Handler) Container(w http.ResponseWriter, r *http.Request) {
	container, ok := h.definitions.Container(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	opts := builder.RenderOptions{
		EntityID: query.Get("entity"),
		Theme:    query.Get("theme"),
		Variant:  query.Get("variant"),
	}
	if opts.EntityID == "" && h.store != nil {
		options, err := h.store.Options(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Str("container", container.ID).Msg("failed to load options")
			http.Error(w, "failed to load options", http.StatusInternalServerError)
			return
		}
		opts.Options = options
	}

	markup, err := h.builder.RenderContainer(r.Context(), container, opts)
	if err != nil {
		h.logger.Error().Err(err).Str("container", container.ID).Str("request_id", middleware.GetReqID(r.Context())).Msg("failed to render container")
		http.Error(w, "failed to render container", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><html><body><form method=\"post\">\n%s<button type=\"submit\">Save</button>\n</form></body></html>\n", markup)
}

// Save persists submitted values for the container's top-level fields.
// Without an entity every value is stored as a site option; with an entity
// the values are stored as meta, grouped under the serialize key when the
// container has one.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	container, ok := h.definitions.Container(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if h.store == nil {
		http.Error(w, "no option store configured", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	values := Submitted(container, r.PostForm)
	entityID := r.URL.Query().Get("entity")
	ctx := r.Context()

	var err error
	switch {
	case entityID != "" && container.Serialize != "":
		// Submitted only covers top-level scalar kinds, so nested group and
		// repeater values already stored under the key are kept.
		var scoped map[string]any
		if scoped, err = h.store.GetScoped(ctx, entityID, container.Serialize); err == nil {
			merged := maps.Clone(scoped)
			if merged == nil {
				merged = make(map[string]any, len(values))
			}
			maps.Copy(merged, values)
			err = h.store.SetMeta(ctx, entityID, container.Serialize, merged)
		}
	case entityID != "":
		for key, v := range values {
			if err = h.store.SetMeta(ctx, entityID, key, v); err != nil {
				break
			}
		}
	default:
		for key, v := range values {
			if err = h.store.SetOption(ctx, key, v); err != nil {
				break
			}
		}
	}
	if err != nil {
		h.logger.Error().Err(err).Str("container", container.ID).Msg("failed to save values")
		http.Error(w, "failed to save values", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("container", container.ID).Int("fields", len(values)).Msg("values saved")
	http.Redirect(w, r, r.URL.String(), http.StatusSeeOther)
}

// Submitted extracts the posted values of container's top-level scalar
// fields, keyed by field id. Multi-value kinds are read from "name[]".
func Submitted(container field.Container, form map[string][]string) map[string]any {
	values := make(map[string]any)
	for _, spec := range container.Fields {
		if spec.ID == "" {
			continue
		}
		prefix := spec.NamePrefix
		if prefix == "" {
			prefix = container.Serialize
		}
		name := spec.ID
		if prefix != "" {
			name = prefix + "[" + spec.ID + "]"
		}

		kind := strings.ToLower(fieldtype.Classify(spec.Type))
		switch kind {
		case builtin.KindHeading, builtin.KindNotice, builtin.KindGroup, builtin.KindRepeater, "":
			continue
		case builtin.KindCheckbox, builtin.KindSelect:
			if list, ok := form[name+"[]"]; ok {
				values[spec.ID] = append([]string(nil), list...)
				continue
			}
			if kind == builtin.KindCheckbox {
				if len(spec.Options) > 0 {
					values[spec.ID] = []string{}
				} else {
					values[spec.ID] = lastIsOn(form[name])
				}
				continue
			}
		case builtin.KindSwitcher:
			values[spec.ID] = lastIsOn(form[name])
			continue
		}

		if list, ok := form[name]; ok && len(list) > 0 {
			values[spec.ID] = list[0]
		}
	}
	return values
}

// lastIsOn reads a toggle rendered as a hidden "0" input followed by the
// checkbox itself, so the last submitted value wins.
func lastIsOn(list []string) bool {
	return len(list) > 0 && list[len(list)-1] == "1"
}
