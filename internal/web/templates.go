package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
)

// layoutTemplate is executed for every page; pages define "content".
const layoutTemplate = "layout"

// Directories under the template root whose files are parsed into every page.
var sharedDirs = []string{"layouts/", "partials/"}

// DirWalker walks a directory tree.
type DirWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// DefaultDirWalker implements DirWalker using godirwalk
type DefaultDirWalker struct{}

func (d *DefaultDirWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// Templates holds one parsed template set per page, keyed by the page's path
// relative to the template root, e.g. "index.html" or "admin/login.html".
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
	"seq": func(from, to int) []int {
		var out []int
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	},
}

// LoadTemplates discovers every .html file below root.
func LoadTemplates(root string) (*Templates, error) {
	return loadTemplates(&DefaultDirWalker{}, root)
}

func loadTemplates(walker DirWalker, root string) (*Templates, error) {
	var shared, pages []string
	err := walker.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), ".html") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			for _, d := range sharedDirs {
				if strings.HasPrefix(rel, d) {
					shared = append(shared, path)
					return nil
				}
			}
			pages = append(pages, rel)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates %s: %w", root, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found under %s", root)
	}
	sort.Strings(shared)

	t := &Templates{pages: make(map[string]*template.Template, len(pages))}
	for _, rel := range pages {
		set := template.New(rel).Funcs(funcs)
		if len(shared) > 0 {
			if set, err = set.ParseFiles(shared...); err != nil {
				return nil, fmt.Errorf("parse shared templates: %w", err)
			}
		}
		if set, err = set.ParseFiles(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		if set.Lookup(layoutTemplate) == nil {
			return nil, fmt.Errorf("%s: no %q template defined", rel, layoutTemplate)
		}
		t.pages[rel] = set
	}
	return t, nil
}

// Has reports whether a page was loaded.
func (t *Templates) Has(name string) bool {
	_, ok := t.pages[name]
	return ok
}

// Names returns the loaded page names in order.
func (t *Templates) Names() []string {
	out := make([]string, 0, len(t.pages))
	for n := range t.pages {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render executes page name into w. Output is buffered so a failing template
// never leaves a half-written response.
func (t *Templates) Render(w io.Writer, name string, data any) error {
	set, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
