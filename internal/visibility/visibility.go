// Package visibility decides which recipes a caller may see and produces the
// filtered, ordered page of a listing.
package visibility

import (
	"slices"
	"strings"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
)

// GuestFreeLimit caps how many public recipes an anonymous caller can see.
const GuestFreeLimit = 20

// Filters are the listing options. Zero Limit means no limit.
type Filters struct {
	Include  []string
	Exclude  []string
	Language model.Lang
	Limit    int
	Offset   int
	OnlyMine bool
}

// Permissions is the part of the role policy the resolver consults.
type Permissions interface {
	Can(role model.Role, obj policy.Object, act policy.Action) bool
}

// Visible is the predicate V(recipe, caller).
func Visible(p Permissions, r *model.Recipe, c model.Caller) bool {
	if c.Authenticated() {
		if p.Can(c.Role, policy.ObjRecipe, policy.ActViewAll) {
			return true
		}
		if p.Can(c.Role, policy.ObjRecipe, policy.ActViewNonDraft) {
			return r.ApprovalStatus != model.StatusDraft || c.IsAuthorOf(r)
		}
	}
	if r.IsExternallyVisible() {
		return true
	}
	return c.IsAuthorOf(r)
}

// Resolver produces listings.
type Resolver struct {
	perms Permissions
}

// New returns a resolver over the given permissions.
func New(p Permissions) *Resolver {
	return &Resolver{perms: p}
}

// Visible reports V(r, c).
func (v *Resolver) Visible(r *model.Recipe, c model.Caller) bool {
	return Visible(v.perms, r, c)
}

// Resolve narrows candidates to what c may see under f, in listing order.
// The candidates slice is not modified.
func (v *Resolver) Resolve(c model.Caller, candidates []*model.Recipe, f Filters, cat Catalog) []*model.Recipe {
	out := make([]*model.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if f.OnlyMine && c.Authenticated() && r.AuthorID != c.UserID {
			continue
		}
		if v.Visible(r, c) {
			out = append(out, r)
		}
	}

	if !c.Authenticated() {
		out = GuestWindow(out)
	}

	include := normalizeTerms(f.Include)
	exclude := normalizeTerms(f.Exclude)
	if len(include) > 0 || len(exclude) > 0 {
		kept := out[:0:0]
		for _, r := range out {
			terms := cat.TermsFor(r, f.Language)
			if matchesAll(terms, include) && !matchesAny(terms, exclude) {
				kept = append(kept, r)
			}
		}
		out = kept
	}

	slices.SortFunc(out, compareListing)
	return page(out, f.Offset, f.Limit)
}

// InGuestWindow reports whether r is among the recipes an anonymous caller may see,
// given all externally visible candidates.
func InGuestWindow(r *model.Recipe, public []*model.Recipe) bool {
	for _, w := range GuestWindow(public) {
		if w.ID == r.ID {
			return true
		}
	}
	return false
}

// GuestWindow keeps the first GuestFreeLimit externally visible recipes, free ones
// first, then oldest first.
func GuestWindow(rs []*model.Recipe) []*model.Recipe {
	w := make([]*model.Recipe, 0, len(rs))
	for _, r := range rs {
		if r.IsExternallyVisible() {
			w = append(w, r)
		}
	}
	slices.SortFunc(w, compareGuestWindow)
	if len(w) > GuestFreeLimit {
		w = w[:GuestFreeLimit]
	}
	return w
}

func compareGuestWindow(a, b *model.Recipe) int {
	if a.IsFree != b.IsFree {
		if a.IsFree {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// compareListing orders by is_free desc, created_at desc, id asc.
func compareListing(a, b *model.Recipe) int {
	if a.IsFree != b.IsFree {
		if a.IsFree {
			return -1
		}
		return 1
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func page(rs []*model.Recipe, offset, limit int) []*model.Recipe {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rs) {
		return []*model.Recipe{}
	}
	rs = rs[offset:]
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}
