package field

import "strings"

// Default condition and action applied to dependency rules that omit them.
const (
	DefaultCondition = "=="
	DefaultAction    = "show"
)

// Spec describes a single field. Type selects the renderer, ID must be unique
// within the owning container.
type Spec struct {
	Type         string            `json:"type" yaml:"type"`
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle     string            `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Class        string            `json:"class,omitempty" yaml:"class,omitempty"`
	Default      any               `json:"default,omitempty" yaml:"default,omitempty"`
	Value        any               `json:"value,omitempty" yaml:"value,omitempty"`
	Placeholder  string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	NamePrefix   string            `json:"name_prefix,omitempty" yaml:"name_prefix,omitempty"`
	Options      []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Dependencies []Dependency      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Fields       []Spec            `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// HasValue reports whether the field carries an inline value.
func (s Spec) HasValue() bool {
	return !IsAbsent(s.Value)
}

// Option is a single choice offered by select, radio and checkbox kinds.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Dependency links the visibility of a field to the current value of a
// sibling controller field. ParentID scopes the controller to another
// container; when empty the owning field's scope is used.
type Dependency struct {
	ParentID   string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Controller string `json:"controller" yaml:"controller"`
	Condition  string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Value      string `json:"value,omitempty" yaml:"value,omitempty"`
	Action     string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Normalized returns a copy with the default condition and action applied and
// surrounding whitespace removed.
func (d Dependency) Normalized() Dependency {
	out := Dependency{
		ParentID:   strings.TrimSpace(d.ParentID),
		Controller: strings.TrimSpace(d.Controller),
		Condition:  strings.TrimSpace(d.Condition),
		Value:      d.Value,
		Action:     strings.TrimSpace(d.Action),
	}
	if out.Condition == "" {
		out.Condition = DefaultCondition
	}
	if out.Action == "" {
		out.Action = DefaultAction
	}
	return out
}

// Container groups fields into a metabox or option page. When Serialize is
// set, values are persisted as one nested mapping under that key and field
// input names are prefixed with it.
type Container struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Serialize   string `json:"serialize,omitempty" yaml:"serialize,omitempty"`
	Fields      []Spec `json:"fields" yaml:"fields"`
	Source      string `json:"-" yaml:"-"`
}

// IsAbsent reports whether a stored or inline value should be treated as
// missing: nil or the empty string.
func IsAbsent(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}
