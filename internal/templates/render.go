package templates

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"
)

// Renderer parses and executes text/template sources, caching parsed templates
type Renderer struct {
	funcMap template.FuncMap
	cache   map[string]*template.Template
	mu      sync.RWMutex
}

// NewRenderer creates a renderer with the built-in helper functions
func NewRenderer() *Renderer {
	return &Renderer{
		funcMap: FuncMap(),
		cache:   make(map[string]*template.Template),
	}
}

// RenderString renders a template held in memory. name keys the cache and
// appears in error messages.
func (r *Renderer) RenderString(name, src string, data any) ([]byte, error) {
	tmpl, err := r.parse("string:"+name, name, func() (string, error) { return src, nil })
	if err != nil {
		return nil, err
	}
	return r.execute(tmpl, data)
}

// RenderFile renders a template read from disk
func (r *Renderer) RenderFile(path string, data any) ([]byte, error) {
	tmpl, err := r.parse("file:"+path, path, func() (string, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template file '%s': %w", path, err)
		}
		return string(b), nil
	})
	if err != nil {
		return nil, err
	}
	return r.execute(tmpl, data)
}

// ClearCache drops every parsed template
func (r *Renderer) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*template.Template)
}

func (r *Renderer) parse(key, name string, load func() (string, error)) (*template.Template, error) {
	r.mu.RLock()
	if tmpl, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	src, err := load()
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).Funcs(r.funcMap).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", name, err)
	}

	r.mu.Lock()
	r.cache[key] = tmpl
	r.mu.Unlock()

	return tmpl, nil
}

func (r *Renderer) execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template '%s': %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// FuncMap returns the helpers available to item templates
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"pascalCase": PascalCase, // settings_page → SettingsPage
		"camelCase":  CamelCase,  // settings_page → settingsPage
		"snakeCase":  SnakeCase,  // SettingsPage → settings_page
		"kebabCase":  KebabCase,  // SettingsPage → settings-page
		"plural":     Pluralize,  // page → pages

		"quote":     Quote,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     Title,
		"trim":      strings.TrimSpace,
		"join":      strings.Join,
		"split":     strings.Split,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"replace":   strings.ReplaceAll,

		"default": Default,
	}
}
