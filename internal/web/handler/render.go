package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

const (
	layoutTemplate = "base.html"
	partialPattern = "*/_*.html"
)

// Renderer holds one parsed template set per page. Pages are rendered inside
// base.html; partials, whose file names start with an underscore, render on
// their own.
type Renderer struct {
	templates map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{templates: map[string]*template.Template{}}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(name) != ".html" || name == layoutTemplate {
			return nil
		}

		var tmpl *template.Template
		if isPartial(name) {
			tmpl, err = template.New(path.Base(name)).Funcs(templateFuncs).ParseFS(fsys, name)
		} else {
			tmpl, err = template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(fsys, layoutTemplate, partialPattern, name)
		}
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func isPartial(name string) bool {
	return strings.HasPrefix(path.Base(name), "_")
}

// Render executes the named template into a buffer before touching w, so a
// failing template never produces half a page.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	entry := layoutTemplate
	if isPartial(name) {
		entry = path.Base(name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, entry, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	_, err := buf.WriteTo(w)
	return err
}
