package field

import (
	"encoding/json"
	"fmt"
)

// FromMap decodes a loose mapping (as produced by JSON/YAML decoders or
// hand-built configuration) into a Spec. Scalar dependency values and option
// values are stringified so `value: true` and `value: 3` are accepted.
func FromMap(raw map[string]any) (Spec, error) {
	if raw == nil {
		return Spec{}, fmt.Errorf("field: nil field map")
	}
	normalized := normalizeMap(raw)
	payload, err := json.Marshal(normalized)
	if err != nil {
		return Spec{}, fmt.Errorf("field: marshal field map: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(payload, &spec); err != nil {
		return Spec{}, fmt.Errorf("field: unmarshal field map: %w", err)
	}
	return spec, nil
}

func normalizeMap(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}
	if deps, ok := asSlice(out["dependencies"]); ok {
		normalized := make([]any, 0, len(deps))
		for _, dep := range deps {
			entry, ok := asMap(dep)
			if !ok {
				normalized = append(normalized, dep)
				continue
			}
			normalized = append(normalized, stringifyKeys(entry, "parent_id", "controller", "condition", "value", "action"))
		}
		out["dependencies"] = normalized
	}
	if options, ok := asSlice(out["options"]); ok {
		normalized := make([]any, 0, len(options))
		for _, option := range options {
			entry, ok := asMap(option)
			if !ok {
				// bare scalars double as value and label
				label := stringify(option)
				normalized = append(normalized, map[string]any{"value": label, "label": label})
				continue
			}
			normalized = append(normalized, stringifyKeys(entry, "value", "label"))
		}
		out["options"] = normalized
	}
	if children, ok := asSlice(out["fields"]); ok {
		normalized := make([]any, 0, len(children))
		for _, child := range children {
			if entry, ok := asMap(child); ok {
				normalized = append(normalized, normalizeMap(entry))
				continue
			}
			normalized = append(normalized, child)
		}
		out["fields"] = normalized
	}
	return out
}

func stringifyKeys(in map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	for _, key := range keys {
		value, ok := out[key]
		if !ok || value == nil {
			continue
		}
		out[key] = stringify(value)
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = item
		}
		return out, true
	default:
		return nil, false
	}
}
