// Package fieldtype maps field type names onto renderer implementations.
// Names are canonicalised with Classify so definitions may spell a kind as
// "color-picker", "color_picker" or "ColorPicker". Resolution failures are
// typed (MissingFieldTypeError, UnknownFieldTypeError) so callers can degrade
// a single field to an inline error block without aborting the page.
package fieldtype
