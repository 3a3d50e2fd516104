package prompt

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the set of templates in effect for a project: the compiled-in
// defaults with optional per-project overrides.
type Catalog struct {
	templates map[Specialist]Template
	source    map[Specialist]string
}

type overrideFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// NewCatalog returns a catalog containing only the defaults.
func NewCatalog() *Catalog {
	c := &Catalog{
		templates: make(map[Specialist]Template, len(defaults)),
		source:    make(map[Specialist]string, len(defaults)),
	}
	for s, t := range defaults {
		c.templates[s] = t
		c.source[s] = "builtin"
	}
	return c
}

// LoadCatalog reads overrides from a YAML file. A missing file yields the defaults.
//
//	templates:
//	  HACKER:
//	    system: |
//	      You are ...
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read prompt overrides: %w", err)
	}
	if err := c.Merge(data, path); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge applies the overrides in data. Empty fields keep the current text.
func (c *Catalog) Merge(data []byte, source string) error {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse prompt overrides %s: %w", source, err)
	}
	for name, o := range f.Templates {
		s, err := ParseSpecialist(name)
		if err != nil {
			return fmt.Errorf("prompt overrides %s: %w", source, err)
		}
		t := c.templates[s]
		if o.System != "" {
			t.System = o.System
		}
		if o.User != "" {
			t.User = o.User
		}
		c.templates[s] = t
		c.source[s] = source
	}
	return nil
}

// Template returns the template in effect for s.
func (c *Catalog) Template(s Specialist) Template {
	if t, ok := c.templates[s]; ok {
		return t
	}
	t, _ := Default(s)
	return t
}

// Source reports where the template for s came from ("builtin" or a file path).
func (c *Catalog) Source(s Specialist) string {
	if src, ok := c.source[s]; ok {
		return src
	}
	return "builtin"
}

// Render renders the system and user messages of the template for s.
func (c *Catalog) Render(s Specialist, vars Vars) (system, user string) {
	t := c.Template(s)
	return Render(compact(t.System, vars), vars), Render(compact(t.User, vars), vars)
}

// compact drops template lines holding only a placeholder whose value is
// blank, then tidies what is left. Only template text is touched.
func compact(tmpl string, vars Vars) string {
	lines := strings.Split(tmpl, "\n")
	kept := lines[:0]
	for _, line := range lines {
		m := placeholderRE.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && m[0] == strings.TrimSpace(line) && isKnown(m[1], vars) && Normalize(m[1], vars[m[1]]) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return Tidy(strings.Join(kept, "\n"))
}

// Overridden lists the specialists whose templates do not come from the defaults.
func (c *Catalog) Overridden() []Specialist {
	var out []Specialist
	for s, src := range c.source {
		if src != "builtin" {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
