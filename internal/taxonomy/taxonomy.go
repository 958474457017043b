// Package taxonomy holds the fixed set of categories and the named blocks
// that belong to each of them.
package taxonomy

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Category struct {
	Name          string   `yaml:"name"`
	Icon          string   `yaml:"icon"`
	Color         string   `yaml:"color"`
	Blocks        []string `yaml:"blocks"`
	Subcategories []string `yaml:"subcategories"`
}

// HasBlock reports whether block is one of c's blocks, ignoring case and
// surrounding space.
func (c Category) HasBlock(block string) bool {
	key := Normalize(block)
	for _, b := range c.Blocks {
		if Normalize(b) == key {
			return true
		}
	}
	return false
}

// Taxonomy is read-only once loaded.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns a fresh copy of the built-in taxonomy.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("taxonomy: built-in document is invalid: %v", err))
		}
		defaultTax = t
	})
	return defaultTax.Clone()
}

// Clone returns a deep copy of t.
func (t *Taxonomy) Clone() *Taxonomy {
	out := &Taxonomy{Categories: make([]Category, len(t.Categories))}
	for i, c := range t.Categories {
		c.Blocks = append([]string(nil), c.Blocks...)
		c.Subcategories = append([]string(nil), c.Subcategories...)
		out.Categories[i] = c
	}
	return out
}

func Load(r io.Reader) (*Taxonomy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return parse(data)
}

func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that category names are present and unique and that
// no category lists the same block twice.
func (t *Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: no categories")
	}
	seen := make(map[string]bool, len(t.Categories))
	for i, c := range t.Categories {
		name := Normalize(c.Name)
		if name == "" {
			return fmt.Errorf("taxonomy: category %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("taxonomy: duplicate category %q", c.Name)
		}
		seen[name] = true

		blocks := make(map[string]bool, len(c.Blocks))
		for _, b := range c.Blocks {
			key := Normalize(b)
			if key == "" {
				return fmt.Errorf("taxonomy: empty block in %q", c.Name)
			}
			if blocks[key] {
				return fmt.Errorf("taxonomy: duplicate block %q in %q", b, c.Name)
			}
			blocks[key] = true
		}
	}
	return nil
}

// Category looks a category up by name.
func (t *Taxonomy) Category(name string) (Category, bool) {
	key := Normalize(name)
	for _, c := range t.Categories {
		if Normalize(c.Name) == key {
			return c, true
		}
	}
	return Category{}, false
}

// Owners returns every category that lists block, in declaration order.
func (t *Taxonomy) Owners(block string) []Category {
	var out []Category
	for _, c := range t.Categories {
		if c.HasBlock(block) {
			out = append(out, c)
		}
	}
	return out
}

func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Color returns the category's colour, or fallback for unknown names.
func (t *Taxonomy) Color(category, fallback string) string {
	if c, ok := t.Category(category); ok && c.Color != "" {
		return c.Color
	}
	return fallback
}

// Normalize is the comparison form used for every name in the app.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
