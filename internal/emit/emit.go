// Package emit renders synthesized builders into Go source files and hands
// them to a Sink.
package emit

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"shireesh.com/buildergen/internal/synth"
)

// Header is the first line of every generated file.
const Header = "// Code generated by buildergen. DO NOT EDIT."

//go:embed templates/*.tmpl
var templates embed.FS

var parse = sync.OnceValues(func() (*template.Template, error) {
	return template.New("builders.go.tmpl").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templates, "templates/builders.go.tmpl")
})

// Render produces the gofmt-formatted source of f.
func Render(f *synth.File) ([]byte, error) {
	tmpl, err := parse()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", f.Path, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w\n%s", f.Path, err, buf.Bytes())
	}
	return src, nil
}

// IsGenerated reports whether src starts with the header written by Render.
// Files without it are never overwritten or removed.
func IsGenerated(src []byte) bool {
	return bytes.HasPrefix(src, []byte(Header))
}
