// Package categories maps source-specific category labels onto the directory taxonomy.
package categories

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/Ramsey-B/camellia/pkg/models"
	"gopkg.in/yaml.v3"
)

// Taxonomy is a read-only snapshot of the category tree, built once per process.
type Taxonomy struct {
	bySlug    map[string]models.Category
	byID      map[string]models.Category
	primaries []models.Category
	fallback  models.Category
}

// NewTaxonomy indexes the nodes and checks that every sub node hangs off an existing primary
// node. The fallback is the primary node with fallbackSlug, or the first primary node.
func NewTaxonomy(nodes []models.Category, fallbackSlug string) (*Taxonomy, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("taxonomy is empty")
	}

	t := &Taxonomy{
		bySlug: make(map[string]models.Category, len(nodes)),
		byID:   make(map[string]models.Category, len(nodes)),
	}

	for _, node := range nodes {
		if node.Slug == "" || node.ID == "" {
			return nil, fmt.Errorf("taxonomy node %q has no slug or id", node.ID+node.Slug)
		}
		if _, exists := t.bySlug[node.Slug]; exists {
			return nil, fmt.Errorf("duplicate taxonomy slug %q", node.Slug)
		}
		t.bySlug[node.Slug] = node
		t.byID[node.ID] = node
	}

	for _, node := range nodes {
		switch node.Level {
		case models.CategoryLevelPrimary:
			if node.ParentSlug != nil && *node.ParentSlug != "" {
				return nil, fmt.Errorf("primary category %q must not have a parent", node.Slug)
			}
			t.primaries = append(t.primaries, node)
		case models.CategoryLevelSub:
			parentSlug := models.StringValue(node.ParentSlug)
			parent, ok := t.bySlug[parentSlug]
			if !ok {
				return nil, fmt.Errorf("subcategory %q has unknown parent %q", node.Slug, parentSlug)
			}
			if parent.Level != models.CategoryLevelPrimary {
				return nil, fmt.Errorf("subcategory %q has non-primary parent %q", node.Slug, parentSlug)
			}
		default:
			return nil, fmt.Errorf("category %q has unknown level %q", node.Slug, node.Level)
		}
	}

	if len(t.primaries) == 0 {
		return nil, fmt.Errorf("taxonomy has no primary categories")
	}

	t.fallback = t.primaries[0]
	if node, ok := t.bySlug[fallbackSlug]; ok && node.Level == models.CategoryLevelPrimary {
		t.fallback = node
	}

	return t, nil
}

func (t *Taxonomy) Fallback() models.Category {
	return t.fallback
}

func (t *Taxonomy) BySlug(slug string) (models.Category, bool) {
	node, ok := t.bySlug[slug]
	return node, ok
}

func (t *Taxonomy) ByID(id string) (models.Category, bool) {
	node, ok := t.byID[id]
	return node, ok
}

// ParentOf returns the primary node a sub node belongs to.
func (t *Taxonomy) ParentOf(subID string) (models.Category, bool) {
	node, ok := t.byID[subID]
	if !ok || node.Level != models.CategoryLevelSub {
		return models.Category{}, false
	}
	return t.BySlug(models.StringValue(node.ParentSlug))
}

// Primaries returns the primary nodes in taxonomy order.
func (t *Taxonomy) Primaries() []models.Category {
	return append([]models.Category(nil), t.primaries...)
}

func (t *Taxonomy) Len() int {
	return len(t.bySlug)
}

//go:embed mappings/taxonomy.yaml
var defaultTaxonomyYAML []byte

type taxonomyFile struct {
	Categories []struct {
		Slug   string `yaml:"slug"`
		Ko     string `yaml:"ko"`
		En     string `yaml:"en"`
		Level  string `yaml:"level"`
		Parent string `yaml:"parent"`
	} `yaml:"categories"`
}

// LoadTaxonomyFile reads a taxonomy snapshot from YAML; an empty path uses the built-in copy.
// Node ids are the slugs, which is what the offline tools need.
func LoadTaxonomyFile(path string) ([]models.Category, error) {
	var r io.Reader = bytes.NewReader(defaultTaxonomyYAML)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open taxonomy %q: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var file taxonomyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode taxonomy yaml: %w", err)
	}

	nodes := make([]models.Category, 0, len(file.Categories))
	for i, c := range file.Categories {
		nodes = append(nodes, models.Category{
			ID:            c.Slug,
			Slug:          c.Slug,
			DisplayNameKo: c.Ko,
			DisplayNameEn: c.En,
			Level:         models.CategoryLevel(c.Level),
			ParentSlug:    models.OptionalString(c.Parent),
			SortOrder:     i,
		})
	}
	return nodes, nil
}
