// Package dependency encodes field visibility rules into the compact
// directive consumed by the client-side conditional visibility runtime.
//
// A directive is a `|` separated list of `#{scope}_{controller}:{condition}`
// fragments, each optionally suffixed with `:{value}`. The accompanying action
// list holds every distinct action in first-seen order. Encoding is stable:
// the same ordered rules always produce byte-identical output.
package dependency

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-optionbuilder/pkg/field"
)

// Markup attribute names emitted for a non-empty directive.
const (
	AttrDirective = "data-dependency"
	AttrActions   = "data-dependency-action"
	AttrContainer = "data-dependency-container"
)

const (
	fragmentPrefix = "#"
	partSeparator  = ":"
	listSeparator  = "|"
	scopeSeparator = "_"
)

// Condition is the structured form of one encoded fragment.
type Condition struct {
	Key       string `json:"key"`
	Condition string `json:"condition"`
	Value     string `json:"value,omitempty"`
}

// Directive is the encoded result for a single field.
type Directive struct {
	Directive string
	Actions   string
	Container string

	conditions []Condition
	actions    []string
}

// Empty reports whether no rule produced a fragment.
func (d Directive) Empty() bool {
	return d.Directive == ""
}

// Conditions returns the fragments in encoding order.
func (d Directive) Conditions() []Condition {
	return append([]Condition(nil), d.conditions...)
}

// ActionList returns the distinct actions in first-seen order.
func (d Directive) ActionList() []string {
	return append([]string(nil), d.actions...)
}

// Attributes returns the markup attributes for the directive, or nil when the
// directive is empty so callers omit them entirely.
func (d Directive) Attributes() map[string]string {
	if d.Empty() {
		return nil
	}
	attrs := map[string]string{
		AttrDirective: d.Directive,
		AttrActions:   d.Actions,
	}
	if d.Container != "" {
		attrs[AttrContainer] = d.Container
	}
	return attrs
}

// MarshalJSON encodes the structured form of the directive.
func (d Directive) MarshalJSON() ([]byte, error) {
	payload := struct {
		Container  string      `json:"container,omitempty"`
		Conditions []Condition `json:"conditions"`
		Actions    []string    `json:"actions"`
	}{
		Container:  d.Container,
		Conditions: d.Conditions(),
		Actions:    d.ActionList(),
	}
	if payload.Conditions == nil {
		payload.Conditions = []Condition{}
	}
	if payload.Actions == nil {
		payload.Actions = []string{}
	}
	return json.Marshal(payload)
}

// Encode folds rules into a directive. Rules without a controller are
// skipped. Each controller key keeps the fragment of the first rule that
// names it, while every distinct action is recorded regardless of whether its
// rule contributed a fragment. fieldID is the default scope for rules that do
// not name a ParentID.
func Encode(rules []field.Dependency, fieldID, containerID string) Directive {
	out := Directive{Container: strings.TrimSpace(containerID)}
	if len(rules) == 0 {
		return out
	}

	seenKeys := make(map[string]struct{}, len(rules))
	seenActions := make(map[string]struct{}, 2)
	fragments := make([]string, 0, len(rules))

	for _, raw := range rules {
		rule := raw.Normalized()
		if rule.Controller == "" {
			continue
		}

		scope := rule.ParentID
		if scope == "" {
			scope = fieldID
		}
		key := scope + scopeSeparator + rule.Controller

		if _, exists := seenKeys[key]; !exists {
			seenKeys[key] = struct{}{}
			fragment := fragmentPrefix + key + partSeparator + rule.Condition
			if rule.Value != "" {
				fragment += partSeparator + rule.Value
			}
			fragments = append(fragments, fragment)
			out.conditions = append(out.conditions, Condition{
				Key:       key,
				Condition: rule.Condition,
				Value:     rule.Value,
			})
		}

		if _, exists := seenActions[rule.Action]; !exists {
			seenActions[rule.Action] = struct{}{}
			out.actions = append(out.actions, rule.Action)
		}
	}

	out.Directive = strings.Join(fragments, listSeparator)
	out.Actions = strings.Join(out.actions, listSeparator)
	return out
}
