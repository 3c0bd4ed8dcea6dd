package repository

import (
	"context"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/moderation"
)

// Scope is a coarse, caller-derived prefilter the store can evaluate in SQL.
// The visibility predicate stays authoritative on top of it.
type Scope int

const (
	// ScopeAll returns every recipe.
	ScopeAll Scope = iota
	// ScopeNonDraftOrOwn returns non-draft recipes plus UserID's drafts.
	ScopeNonDraftOrOwn
	// ScopePublicOrOwn returns externally visible recipes plus everything UserID authored.
	ScopePublicOrOwn
	// ScopePublic returns externally visible recipes only.
	ScopePublic
)

// Order selects the SQL ordering of a candidate query.
type Order int

const (
	// OrderListing is is_free desc, created_at desc, id asc.
	OrderListing Order = iota
	// OrderGuestWindow is is_free desc, created_at asc, id asc.
	OrderGuestWindow
)

// RecipeFilter narrows a candidate query.
type RecipeFilter struct {
	Scope    Scope
	UserID   string
	AuthorID string // only_mine
	Order    Order
	Limit    int // 0 means no limit
}

// RecipeRepository stores recipe documents.
type RecipeRepository interface {
	// Create inserts a new recipe with ver 1. deviceID records the guest device, if any.
	Create(ctx context.Context, r *model.Recipe, deviceID string) error
	// Get loads a recipe by id.
	Get(ctx context.Context, id string) (*model.Recipe, error)
	// List returns candidates matching f.
	List(ctx context.Context, f RecipeFilter) ([]*model.Recipe, error)
	// Update writes content and admin flags if the stored ver equals baseVer and returns the new ver.
	Update(ctx context.Context, r *model.Recipe, baseVer int64) (int64, error)
	// ApplyTransition performs the conditional update keyed by (id, approval_status = t.From).
	// A missing id is errs.ErrNotFound; a failed precondition is errs.ErrInvalidTransition.
	ApplyTransition(ctx context.Context, t moderation.Transition) (*model.Recipe, error)
	// UpsertTranslation writes translations[lang] only if it is still absent and reports whether it wrote.
	UpsertTranslation(ctx context.Context, id string, lang model.Lang, tr model.Translation) (bool, error)
	// Upsert inserts or replaces a recipe by id, for imports.
	Upsert(ctx context.Context, r *model.Recipe) error
	// Delete removes a recipe.
	Delete(ctx context.Context, id string) error
}
