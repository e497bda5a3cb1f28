// Package value resolves the display value of a field from the overlapping
// sources an option screen can draw on: an explicit value supplied by the
// caller, the value inlined in the definition, the stored site options, the
// per-entity meta store, and finally the field default.
package value

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// MetaStore is the persistence port for per-entity values. Get returns the
// unscoped value stored under key; GetScoped returns the mapping serialized
// under a container key. Both report absence with ok=false / nil map rather
// than an error.
type MetaStore interface {
	Get(ctx context.Context, entityID, key string) (any, bool, error)
	GetScoped(ctx context.Context, entityID, containerKey string) (map[string]any, error)
}

// Request carries the per-render inputs for a single field.
type Request struct {
	// Explicit wins over every other source when HasExplicit is set.
	Explicit    any
	HasExplicit bool
	// Options holds the stored site options, consulted when EntityID is
	// empty.
	Options map[string]any
	// EntityID scopes the lookup to the meta store.
	EntityID string
	// ContainerKey selects the nested mapping in the meta store.
	ContainerKey string
}

// Resolver applies the precedence rules. The zero value resolves without a
// meta store.
type Resolver struct {
	meta MetaStore
}

// NewResolver constructs a resolver backed by the provided meta store. A nil
// store disables the entity lookup.
func NewResolver(meta MetaStore) *Resolver {
	return &Resolver{meta: meta}
}

// Resolve returns the effective value for spec.
func (r *Resolver) Resolve(ctx context.Context, spec field.Spec, req Request) (any, error) {
	if req.HasExplicit {
		return req.Explicit, nil
	}
	if spec.HasValue() {
		return spec.Value, nil
	}

	id := strings.TrimSpace(spec.ID)
	entityID := strings.TrimSpace(req.EntityID)

	if id != "" {
		if entityID == "" {
			if stored, ok := req.Options[id]; ok && !field.IsAbsent(stored) {
				return stored, nil
			}
		} else {
			stored, err := r.lookupMeta(ctx, entityID, id, strings.TrimSpace(req.ContainerKey))
			if err != nil {
				return nil, err
			}
			if !field.IsAbsent(stored) {
				return stored, nil
			}
		}
	}

	if !field.IsAbsent(spec.Default) {
		return spec.Default, nil
	}
	return "", nil
}

// lookupMeta queries the unscoped store first and lets a present scoped value
// take over. An absent scoped value never clears the unscoped one.
func (r *Resolver) lookupMeta(ctx context.Context, entityID, id, containerKey string) (any, error) {
	if r == nil || r.meta == nil {
		return nil, nil
	}

	var result any
	stored, ok, err := r.meta.Get(ctx, entityID, id)
	if err != nil {
		return nil, fmt.Errorf("value: load meta %q for %q: %w", id, entityID, err)
	}
	if ok {
		result = stored
	}

	if containerKey == "" {
		return result, nil
	}

	scoped, err := r.meta.GetScoped(ctx, entityID, containerKey)
	if err != nil {
		return nil, fmt.Errorf("value: load scoped meta %q for %q: %w", containerKey, entityID, err)
	}
	if candidate, ok := scoped[id]; ok && !field.IsAbsent(candidate) {
		result = candidate
	}
	return result, nil
}

// String renders a resolved value for use in markup.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Strings flattens a resolved value into a list, as used by multi-choice
// fields.
func Strings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := String(v); s != "" {
			return []string{s}
		}
		return nil
	}
}
