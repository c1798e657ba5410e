// Package templates loads a directory catalog of item templates and renders
// selected items into a cycle's scratch tree.
//
// A catalog is a directory of templates, one per sub-directory:
//
//	templates/
//	  settings-page/
//	    template.yml      identity, name, type, description
//	    content/          files rendered into the scratch tree
//
// Both file paths and file bodies under content/ are text/template sources.
// Files named with a "_postaction" suffix (e.g. "App_postaction.go") are merge
// fragments applied to existing files by the merge post-action.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the per-template manifest name
const ManifestFile = "template.yml"

// ContentDir holds the files a template renders
const ContentDir = "content"

// TemplateType classifies templates for telemetry
type TemplateType int

const (
	TypeOther TemplateType = iota
	TypeProject
	TypePage
	TypeFeature
)

// ParseTemplateType maps a manifest type, case-insensitively. Unknown types are TypeOther.
func ParseTemplateType(s string) TemplateType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project":
		return TypeProject
	case "page":
		return TypePage
	case "feature":
		return TypeFeature
	default:
		return TypeOther
	}
}

func (t TemplateType) String() string {
	switch t {
	case TypeProject:
		return "project"
	case TypePage:
		return "page"
	case TypeFeature:
		return "feature"
	default:
		return "other"
	}
}

// Template is one catalog entry
type Template struct {
	Identity    string `yaml:"identity"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`

	Dir string `yaml:"-"` // template root on disk
}

// TemplateType returns the parsed type tag
func (t *Template) TemplateType() TemplateType {
	return ParseTemplateType(t.Type)
}

// ContentPath returns the directory holding the template's files
func (t *Template) ContentPath() string {
	return filepath.Join(t.Dir, ContentDir)
}

// Catalog is a set of templates keyed by identity
type Catalog struct {
	Root      string
	templates map[string]*Template
}

// LoadCatalog reads every template under root. Sub-directories without a
// manifest are ignored; a malformed manifest or duplicate identity is an error.
func LoadCatalog(root string) (*Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read template catalog %s: %w", root, err)
	}

	c := &Catalog{Root: root, templates: make(map[string]*Template)}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		dir := filepath.Join(root, e.Name())
		tmpl, err := LoadTemplate(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if prev, ok := c.templates[tmpl.Identity]; ok {
			return nil, fmt.Errorf("duplicate template identity %q in %s and %s", tmpl.Identity, prev.Dir, dir)
		}
		c.templates[tmpl.Identity] = tmpl
	}

	return c, nil
}

// LoadTemplate reads a single template directory. The identity defaults to
// the directory name and the name to the identity.
func LoadTemplate(dir string) (*Template, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	tmpl := &Template{}
	if err := yaml.Unmarshal(data, tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Join(dir, ManifestFile), err)
	}
	tmpl.Dir = dir
	if tmpl.Identity == "" {
		tmpl.Identity = filepath.Base(dir)
	}
	if tmpl.Name == "" {
		tmpl.Name = tmpl.Identity
	}

	return tmpl, nil
}

// Get returns a template by identity
func (c *Catalog) Get(identity string) (*Template, bool) {
	t, ok := c.templates[identity]
	return t, ok
}

// List returns all templates sorted by identity
func (c *Catalog) List() []*Template {
	out := make([]*Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
