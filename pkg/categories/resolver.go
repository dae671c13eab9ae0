package categories

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/camellia/pkg/models"
)

// minReverseContainRunes keeps very short labels ("a", "의") from matching every key that
// happens to contain them.
const minReverseContainRunes = 2

type Options struct {
	// SubSlugTrueParent resolves a bare subcategory slug under its real parent instead of the
	// fallback primary.
	SubSlugTrueParent bool
}

type target struct {
	key      string
	primary  models.Category
	sub      *models.Category
	priority int
	exclude  []string
}

// Resolver assigns taxonomy nodes to raw labels. It is safe for concurrent use once built.
type Resolver struct {
	taxonomy *Taxonomy
	exact    map[string]*target
	ordered  []*target
	options  Options
	warnings []string
}

// NewResolver compiles the table against the taxonomy. Entries naming unknown slugs, or a
// subcategory outside their primary, are dropped and listed in Warnings.
func NewResolver(taxonomy *Taxonomy, table *MappingTable, options Options) *Resolver {
	r := &Resolver{
		taxonomy: taxonomy,
		exact:    make(map[string]*target),
		options:  options,
	}
	if table == nil {
		return r
	}

	for i, m := range table.Mappings {
		key := labelKey(m.Label)
		if key == "" {
			r.warnf("mapping %d has an empty label", i)
			continue
		}

		primary, ok := taxonomy.BySlug(m.Primary)
		if !ok || primary.Level != models.CategoryLevelPrimary {
			r.warnf("mapping %q: %q is not a primary category", m.Label, m.Primary)
			continue
		}

		t := &target{key: key, primary: primary, priority: m.Priority}
		if m.Sub != "" {
			sub, ok := taxonomy.BySlug(m.Sub)
			if !ok || sub.Level != models.CategoryLevelSub || models.StringValue(sub.ParentSlug) != primary.Slug {
				r.warnf("mapping %q: %q is not a subcategory of %q", m.Label, m.Sub, m.Primary)
				continue
			}
			t.sub = &sub
		}
		for _, ex := range m.Exclude {
			if ex = labelKey(ex); ex != "" {
				t.exclude = append(t.exclude, ex)
			}
		}

		if _, dup := r.exact[key]; dup {
			r.warnf("mapping %q is listed more than once; keeping the first", m.Label)
			continue
		}
		r.exact[key] = t
		r.ordered = append(r.ordered, t)
	}

	return r
}

func (r *Resolver) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Warnings lists the mapping entries that were dropped while compiling.
func (r *Resolver) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

func (r *Resolver) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Resolve maps a raw label to a taxonomy assignment. Steps, first hit wins:
//  1. exact label in the mapping table
//  2. the label is itself a taxonomy slug
//  3. the label contains a table key, or a table key contains the label
//  4. the fallback primary, with Matched false
//
// It never fails: every input, including "", gets a primary category.
func (r *Resolver) Resolve(raw string) models.Resolution {
	key := labelKey(raw)
	if key == "" {
		return r.fallback()
	}

	if t, ok := r.exact[key]; ok {
		return t.resolution(models.ResolutionExact)
	}

	if node, ok := r.taxonomy.BySlug(key); ok {
		return r.slugResolution(node)
	}

	if t := r.bestContaining(key); t != nil {
		return t.resolution(models.ResolutionContains)
	}

	return r.fallback()
}

func (r *Resolver) slugResolution(node models.Category) models.Resolution {
	if node.Level == models.CategoryLevelPrimary {
		return models.Resolution{
			PrimaryID:   node.ID,
			PrimarySlug: node.Slug,
			Matched:     true,
			Method:      models.ResolutionSlug,
		}
	}

	primary := r.taxonomy.Fallback()
	if r.options.SubSlugTrueParent {
		if parent, ok := r.taxonomy.ParentOf(node.ID); ok {
			primary = parent
		}
	}
	return models.Resolution{
		PrimaryID:   primary.ID,
		PrimarySlug: primary.Slug,
		SubID:       node.ID,
		SubSlug:     node.Slug,
		Matched:     true,
		Method:      models.ResolutionSlug,
	}
}

func (r *Resolver) bestContaining(key string) *target {
	var best *target
	reverse := utf8.RuneCountInString(key) >= minReverseContainRunes

	for _, t := range r.ordered {
		if !strings.Contains(key, t.key) && !(reverse && strings.Contains(t.key, key)) {
			continue
		}
		if t.excludes(key) {
			continue
		}
		if best == nil || t.priority > best.priority {
			best = t
		}
	}
	return best
}

func (r *Resolver) fallback() models.Resolution {
	fb := r.taxonomy.Fallback()
	return models.Resolution{
		PrimaryID:   fb.ID,
		PrimarySlug: fb.Slug,
		Matched:     false,
		Method:      models.ResolutionFallback,
	}
}

// RepairParent makes a resolution consistent with the taxonomy: a subcategory that does not
// belong to the resolved primary is replaced by its real parent.
func (r *Resolver) RepairParent(res models.Resolution) models.Resolution {
	if res.SubID == "" {
		return res
	}
	parent, ok := r.taxonomy.ParentOf(res.SubID)
	if !ok {
		res.SubID, res.SubSlug = "", ""
		return res
	}
	if parent.ID != res.PrimaryID {
		res.PrimaryID = parent.ID
		res.PrimarySlug = parent.Slug
	}
	return res
}

func (t *target) excludes(key string) bool {
	for _, ex := range t.exclude {
		if strings.Contains(key, ex) {
			return true
		}
	}
	return false
}

func (t *target) resolution(method models.ResolutionMethod) models.Resolution {
	res := models.Resolution{
		PrimaryID:   t.primary.ID,
		PrimarySlug: t.primary.Slug,
		Matched:     true,
		Method:      method,
	}
	if t.sub != nil {
		res.SubID = t.sub.ID
		res.SubSlug = t.sub.Slug
	}
	return res
}

func labelKey(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
