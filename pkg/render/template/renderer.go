package template

import (
	"io"
)

// TemplateRenderer is the seam field renderers and the option builder render
// markup through. The pongo engine is the default implementation; callers can
// inject any engine satisfying the contract.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
