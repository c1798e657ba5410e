package templates

import (
	"fmt"
	"strings"
)

// SelectedItem is one template the user picked, with an instance name
type SelectedItem struct {
	TemplateID string
	Name       string
}

// UserSelection is what the host collected for a generation cycle. ProjectType
// and Framework only tag telemetry.
type UserSelection struct {
	ProjectType string
	Framework   string
	Items       []SelectedItem
	Parameters  map[string]string
}

// ParseItem parses "template[:name]"
func ParseItem(s string) (SelectedItem, error) {
	id, name, _ := strings.Cut(s, ":")
	id = strings.TrimSpace(id)
	if id == "" {
		return SelectedItem{}, fmt.Errorf("invalid item %q, expected template[:name]", s)
	}
	return SelectedItem{TemplateID: id, Name: strings.TrimSpace(name)}, nil
}

// GenInfo is one item to generate
type GenInfo struct {
	Name       string
	Template   *Template
	Parameters map[string]string
}

// Key identifies the item's result: "{identity}_{name}"
func (g GenInfo) Key() string {
	return g.Template.Identity + "_" + g.Name
}

// Compose resolves a selection against the catalog. An unknown template is an
// error; an empty instance name defaults to the template name. Two items with
// the same key would overwrite each other and are rejected.
func Compose(catalog *Catalog, sel UserSelection) ([]GenInfo, error) {
	items := make([]GenInfo, 0, len(sel.Items))
	seen := make(map[string]bool, len(sel.Items))

	for _, it := range sel.Items {
		tmpl, ok := catalog.Get(it.TemplateID)
		if !ok {
			return nil, fmt.Errorf("unknown template %q", it.TemplateID)
		}

		name := it.Name
		if name == "" {
			name = tmpl.Name
		}

		info := GenInfo{Name: name, Template: tmpl, Parameters: sel.Parameters}
		if seen[info.Key()] {
			return nil, fmt.Errorf("item %q selected twice", info.Key())
		}
		seen[info.Key()] = true
		items = append(items, info)
	}

	return items, nil
}
