package handlers

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sync"

	"go.uber.org/zap"
)

const layoutFile = "layout.html"

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
	log   *zap.Logger
}

func NewTemplateCache(log *zap.Logger) *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
		log:   log,
	}
}

func (tc *TemplateCache) AddFunc(name string, fn interface{}) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every page in fsys together with the shared layout and the
// partials/ directory.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for name, fn := range defaultFuncs() {
		if _, ok := tc.funcs[name]; !ok {
			tc.funcs[name] = fn
		}
	}

	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return err
	}

	for _, page := range pages {
		name := path.Base(page)
		if name == layoutFile {
			continue
		}
		files := append([]string{layoutFile}, partials...)
		files = append(files, page)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, files...)
		if err != nil {
			tc.log.Error("Failed to parse template", zap.String("file", page), zap.Error(err))
			return err
		}
		tc.cache[name] = tmpl
		tc.log.Debug("Cached template", zap.String("name", name))
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes the layout of a cached page.
func (tc *TemplateCache) Render(w io.Writer, name string, data any) error {
	tmpl := tc.Get(name)
	if tmpl == nil {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
