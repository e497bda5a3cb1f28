package optionbuilder

import (
	"io/fs"

	"github.com/goliatone/go-optionbuilder/pkg/builder"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype/builtin"
)

// FieldTemplates exposes the built-in field templates ("fields/<kind>.tmpl")
// so callers can copy or extend them.
func FieldTemplates() fs.FS {
	return builtin.TemplatesFS()
}

// LayoutTemplates exposes the field, container and error layout templates
// ("layout/<name>.tmpl").
func LayoutTemplates() fs.FS {
	return builder.TemplatesFS()
}
