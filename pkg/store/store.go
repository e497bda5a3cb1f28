// Package store defines the persistence port shared by the option store
// adapters. Implementations live in the memory and sqlite subpackages.
package store

import (
	"context"

	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// Store persists site options and per-entity meta. It doubles as the meta
// source for value.Resolver.
type Store interface {
	value.MetaStore

	// Options returns every stored site option keyed by field id.
	Options(ctx context.Context) (map[string]any, error)
	SetOption(ctx context.Context, key string, v any) error
	// SetMeta stores v under key for entityID. Storing a map under a
	// container's serialize key makes it visible to GetScoped.
	SetMeta(ctx context.Context, entityID, key string, v any) error
}
