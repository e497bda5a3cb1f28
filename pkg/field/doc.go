// Package field defines the option builder's field definitions. A Spec
// describes a single configurable input (text box, switcher, repeater, ...)
// and carries the dependency rules that control its visibility relative to
// sibling fields. Containers group specs into a metabox or option page and
// optionally serialize every value under a single container key.
//
// Definitions can be declared in Go, decoded from loose maps via FromMap, or
// loaded from JSON/YAML documents with LoadFS.
package field
