// Package optionbuilder renders option screens (metaboxes and settings
// pages) from declarative field definitions. The root package re-exports the
// common types and offers one-call helpers; the building blocks live under
// pkg/.
package optionbuilder

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-optionbuilder/pkg/builder"
	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// Spec aliases field.Spec.
type Spec = field.Spec

// Container aliases field.Container.
type Container = field.Container

// Dependency aliases field.Dependency.
type Dependency = field.Dependency

// RenderOptions describes the per-request values used while rendering.
type RenderOptions = builder.RenderOptions

// New exposes the builder constructor from the top-level module.
func New(options ...builder.Option) (*builder.Builder, error) {
	return builder.New(options...)
}

// RenderFS loads the definitions in fsys and renders the container with the
// given id. It is the simplest entry point for callers that just want HTML.
func RenderFS(ctx context.Context, fsys fs.FS, containerID string, opts RenderOptions, options ...builder.Option) ([]byte, error) {
	defs, err := field.LoadFS(fsys)
	if err != nil {
		return nil, err
	}
	container, ok := defs.Container(containerID)
	if !ok {
		return nil, fmt.Errorf("optionbuilder: container %q not found", containerID)
	}
	b, err := builder.New(options...)
	if err != nil {
		return nil, err
	}
	return b.RenderContainer(ctx, container, opts)
}
