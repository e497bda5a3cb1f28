// Package template defines the renderer-agnostic template contract used by
// the option builder. The pongo subpackage provides the default pongo2-backed
// engine.
package template
