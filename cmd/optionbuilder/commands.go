package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-optionbuilder/pkg/builder"
	"github.com/goliatone/go-optionbuilder/pkg/definitions"
	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/metrics"
	"github.com/goliatone/go-optionbuilder/pkg/preview"
	"github.com/goliatone/go-optionbuilder/pkg/prompt"
	"github.com/goliatone/go-optionbuilder/pkg/schemaimport"
	"github.com/goliatone/go-optionbuilder/pkg/store"
	"github.com/goliatone/go-optionbuilder/pkg/store/memory"
	"github.com/goliatone/go-optionbuilder/pkg/store/sqlite"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// common holds the flags shared by the commands that render definitions.
type common struct {
	defs      string
	db        string
	templates string
	theme     string
	variant   string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.defs, "defs", "definitions", "directory containing container definitions (.json/.yaml)")
	fs.StringVar(&c.db, "db", "", "SQLite option store path (in-memory when empty)")
	fs.StringVar(&c.templates, "templates", "", "directory with template overrides")
	fs.StringVar(&c.theme, "theme", "", "theme name passed to the renderer")
	fs.StringVar(&c.variant, "variant", "", "theme variant passed to the renderer")
}

func (c *common) definitions() (*field.Store, error) {
	defs, err := field.LoadFS(os.DirFS(c.defs))
	if err != nil {
		return nil, fmt.Errorf("load definitions from %s: %w", c.defs, err)
	}
	if defs.Empty() {
		return nil, fmt.Errorf("no container definitions found in %s", c.defs)
	}
	return defs, nil
}

// openStore returns the configured option store and a close function.
func (c *common) openStore() (store.Store, func(), error) {
	if c.db == "" {
		return memory.New(), func() {}, nil
	}
	db, err := sqlite.Open(c.db)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return sqlite.NewOptionStore(db), func() { db.Close() }, nil
}

func (c *common) builder(logger zerolog.Logger, st store.Store, collector *metrics.Collector) (*builder.Builder, error) {
	options := []builder.Option{
		builder.WithLogger(logger),
		builder.WithResolver(value.NewResolver(st)),
		builder.WithTheme(c.theme, c.variant),
	}
	if collector != nil {
		options = append(options, builder.WithObserver(collector))
	}
	if c.templates != "" {
		options = append(options, builder.WithTemplatesFS(os.DirFS(c.templates)))
	}
	return builder.New(options...)
}

func runRender(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var cfg common
	cfg.register(fs)
	containerID := fs.String("container", "", "container id to render (required)")
	entity := fs.String("entity", "", "entity id whose meta values are rendered")
	output := fs.String("output", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *containerID == "" {
		return errors.New("render: -container is required")
	}

	defs, err := cfg.definitions()
	if err != nil {
		return err
	}
	container, ok := defs.Container(*containerID)
	if !ok {
		return fmt.Errorf("render: unknown container %q (known: %s)", *containerID, strings.Join(defs.IDs(), ", "))
	}

	st, closeStore, err := cfg.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	b, err := cfg.builder(logger, st, nil)
	if err != nil {
		return err
	}

	opts := builder.RenderOptions{EntityID: *entity}
	if *entity == "" {
		if opts.Options, err = st.Options(ctx); err != nil {
			return fmt.Errorf("render: load options: %w", err)
		}
	}
	markup, err := b.RenderContainer(ctx, container, opts)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := os.WriteFile(*output, markup, 0o644); err != nil {
			return fmt.Errorf("render: write output: %w", err)
		}
		logger.Info().Str("container", container.ID).Str("output", *output).Msg("container rendered")
		return nil
	}
	_, err = os.Stdout.Write(markup)
	return err
}

func runEdit(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	var cfg common
	cfg.register(fs)
	containerID := fs.String("container", "", "container id to edit (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *containerID == "" || cfg.db == "" {
		return errors.New("edit: -container and -db are required")
	}

	defs, err := cfg.definitions()
	if err != nil {
		return err
	}
	container, ok := defs.Container(*containerID)
	if !ok {
		return fmt.Errorf("edit: unknown container %q", *containerID)
	}

	st, closeStore, err := cfg.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	current, err := st.Options(ctx)
	if err != nil {
		return fmt.Errorf("edit: load options: %w", err)
	}
	answers, err := prompt.NewEditor(prompt.NewSurveyDriver()).Edit(ctx, container, current)
	if err != nil {
		return err
	}
	for key, v := range answers {
		if err := st.SetOption(ctx, key, v); err != nil {
			return fmt.Errorf("edit: save %q: %w", key, err)
		}
	}
	logger.Info().Str("container", container.ID).Int("fields", len(answers)).Msg("options saved")
	return nil
}

func runServe(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var cfg common
	cfg.register(fs)
	addr := fs.String("addr", ":8080", "listen address")
	watch := fs.Bool("watch", false, "reload definitions when files change")
	withMetrics := fs.Bool("metrics", false, "expose Prometheus metrics at /metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	defs, err := definitions.NewHolder(cfg.defs, logger)
	if err != nil {
		return err
	}
	if len(defs.IDs()) == 0 {
		return fmt.Errorf("no container definitions found in %s", cfg.defs)
	}

	var collector *metrics.Collector
	var metricsHandler http.Handler
	if *withMetrics {
		collector = metrics.New()
		collector.DefinitionsReloaded(len(defs.IDs()), nil)
		metricsHandler = promhttp.Handler()
	}
	if *watch {
		defs.OnReload(func(store *field.Store, err error) {
			collector.DefinitionsReloaded(len(store.IDs()), err)
		})
		if err := defs.Watch(); err != nil {
			return err
		}
		defer defs.Stop()
	}

	st, closeStore, err := cfg.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	b, err := cfg.builder(logger, st, collector)
	if err != nil {
		return err
	}
	handler := preview.NewHandler(preview.Deps{
		Builder:        b,
		Definitions:    defs,
		Store:          st,
		Logger:         logger,
		Metrics:        collector,
		MetricsHandler: metricsHandler,
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *addr).Strs("containers", defs.IDs()).Msg("preview server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down preview server")
		return server.Shutdown(shutdownCtx)
	}
}

func runImport(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	source := fs.String("source", "", "OpenAPI document path (required)")
	schema := fs.String("schema", "", "component schema name (required)")
	output := fs.String("output", "", "output YAML file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *source == "" || *schema == "" {
		return errors.New("import: -source and -schema are required")
	}

	raw, err := os.ReadFile(*source)
	if err != nil {
		return fmt.Errorf("import: read %s: %w", *source, err)
	}
	container, err := schemaimport.FromOpenAPI(ctx, raw, *schema)
	if err != nil {
		return err
	}
	data, err := field.EncodeYAML(container)
	if err != nil {
		return err
	}

	if *output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("import: write output: %w", err)
	}
	logger.Info().Str("schema", *schema).Int("fields", len(container.Fields)).Str("output", *output).Msg("definitions written")
	return nil
}
