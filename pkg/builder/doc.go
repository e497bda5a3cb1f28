// Package builder renders option screens: containers of field specs turned
// into form markup. Each field is resolved against the fieldtype registry,
// given its value through the value resolver, annotated with the encoded
// dependency directive and wrapped in the field layout template.
//
// A field that cannot be rendered (missing or unknown type, renderer or
// store failure) is replaced by an inline error block and logged; sibling
// fields and the surrounding container are unaffected.
package builder
