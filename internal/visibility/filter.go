package visibility

import (
	"strings"

	"github.com/and161185/slushbook/internal/model"
)

// Catalog resolves ingredient references to catalog entries by id or name.
type Catalog map[string]*model.Ingredient

// NewCatalog indexes ingredients by lower-cased id and name.
func NewCatalog(ings []*model.Ingredient) Catalog {
	c := make(Catalog, 2*len(ings))
	for _, ing := range ings {
		if ing.ID != "" {
			c[strings.ToLower(ing.ID)] = ing
		}
		c[strings.ToLower(strings.TrimSpace(ing.Name))] = ing
	}
	return c
}

// TermsFor collects lower-cased ingredient names of r plus catalog names and
// keywords for lang.
func (c Catalog) TermsFor(r *model.Recipe, lang model.Lang) []string {
	terms := make([]string, 0, 2*len(r.Ingredients))
	for _, l := range r.Ingredients {
		ref := strings.ToLower(strings.TrimSpace(l.IngredientRef))
		if ref != "" {
			terms = append(terms, ref)
		}
		if ing, ok := c[ref]; ok {
			terms = append(terms, ing.SearchTerms(lang)...)
		}
	}
	return terms
}

func normalizeTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsTerm(terms []string, needle string) bool {
	for _, t := range terms {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}

// matchesAll is the include filter: every needle must hit some term.
func matchesAll(terms, needles []string) bool {
	for _, n := range needles {
		if !containsTerm(terms, n) {
			return false
		}
	}
	return true
}

// matchesAny is the exclude filter.
func matchesAny(terms, needles []string) bool {
	for _, n := range needles {
		if containsTerm(terms, n) {
			return true
		}
	}
	return false
}
