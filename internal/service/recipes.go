package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/convert"
	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/i18n"
	"github.com/and161185/slushbook/internal/metrics"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/moderation"
	"github.com/and161185/slushbook/internal/policy"
	"github.com/and161185/slushbook/internal/repository"
	"github.com/and161185/slushbook/internal/visibility"
)

// DefaultMaxLimit bounds a listing page when no other limit is configured.
const DefaultMaxLimit = 100

// TranslationQueue accepts translation jobs. Enqueue must not wait for the translation.
type TranslationQueue interface {
	Enqueue(ctx context.Context, recipeID string, langs []model.Lang) error
}

// RecipePatch is the admin surface over a recipe's flags.
type RecipePatch struct {
	IsFree   *bool
	ImageURL *string
}

// RecipeService defines recipe reads, authoring and moderation.
type RecipeService interface {
	// List returns the caller's visible, filtered, ordered page localized to loc.
	List(ctx context.Context, c model.Caller, f visibility.Filters, loc convert.Locale) ([]convert.RecipeView, error)
	// Get returns one recipe if the caller may see it, else errs.ErrNotFound.
	Get(ctx context.Context, c model.Caller, id string, loc convert.Locale) (convert.RecipeView, error)
	// Create stores a new draft, charging the guest quota where it applies.
	Create(ctx context.Context, c model.Caller, in model.RecipeInput) (*model.Recipe, error)
	// Update replaces the content of a recipe stored at baseVer.
	Update(ctx context.Context, c model.Caller, id string, in model.RecipeInput, baseVer int64) (*model.Recipe, error)
	// Delete removes a recipe.
	Delete(ctx context.Context, c model.Caller, id string) error
	// Transition fires a moderation event.
	Transition(ctx context.Context, c model.Caller, id string, ev moderation.Event, reason string) (*model.Recipe, error)
	// AdminPatch overwrites admin-controlled flags.
	AdminPatch(ctx context.Context, c model.Caller, id string, p RecipePatch) (*model.Recipe, error)
}

// RecipeConfig carries the listing and translation settings.
type RecipeConfig struct {
	Languages []model.Lang // languages the translator fills in
	MaxLimit  int
}

type RecipeServiceImpl struct {
	recipes     repository.RecipeRepository
	ingredients repository.IngredientRepository
	policy      *policy.Policy
	resolver    *visibility.Resolver
	queue       TranslationQueue
	languages   []model.Lang
	maxLimit    int
	log         *zap.Logger
	now         func() time.Time
}

// NewRecipeService constructs RecipeService. queue may be nil when no translator is configured.
func NewRecipeService(
	recipes repository.RecipeRepository,
	ingredients repository.IngredientRepository,
	pol *policy.Policy,
	queue TranslationQueue,
	cfg RecipeConfig,
	log *zap.Logger,
) *RecipeServiceImpl {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RecipeServiceImpl{
		recipes:     recipes,
		ingredients: ingredients,
		policy:      pol,
		resolver:    visibility.New(pol),
		queue:       queue,
		languages:   append([]model.Lang(nil), cfg.Languages...),
		maxLimit:    cfg.MaxLimit,
		log:         log,
		now:         time.Now,
	}
}

// candidates maps the caller to the coarse store scope; visibility.Resolver stays authoritative.
func (s *RecipeServiceImpl) candidates(c model.Caller, f visibility.Filters) repository.RecipeFilter {
	if !c.Authenticated() {
		return repository.RecipeFilter{
			Scope: repository.ScopePublic,
			Order: repository.OrderGuestWindow,
			Limit: visibility.GuestFreeLimit,
		}
	}
	rf := repository.RecipeFilter{Scope: repository.ScopePublicOrOwn, UserID: c.UserID}
	switch {
	case s.policy.Can(c.Role, policy.ObjRecipe, policy.ActViewAll):
		rf.Scope = repository.ScopeAll
	case s.policy.Can(c.Role, policy.ObjRecipe, policy.ActViewNonDraft):
		rf.Scope = repository.ScopeNonDraftOrOwn
	}
	if f.OnlyMine {
		rf.AuthorID = c.UserID
	}
	return rf
}

func (s *RecipeServiceImpl) clampPage(f visibility.Filters) visibility.Filters {
	if f.Limit <= 0 || f.Limit > s.maxLimit {
		f.Limit = s.maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// List resolves the listing. Recipes that cannot be localized are skipped.
func (s *RecipeServiceImpl) List(ctx context.Context, c model.Caller, f visibility.Filters, loc convert.Locale) ([]convert.RecipeView, error) {
	f = s.clampPage(f)
	if f.Language == "" {
		f.Language = loc.Language
	} else if f.Language != loc.Language {
		loc = convert.NewLocale(loc.Country, f.Language)
	}

	cands, err := s.recipes.List(ctx, s.candidates(c, f))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	var cat visibility.Catalog
	if len(f.Include) > 0 || len(f.Exclude) > 0 {
		ings, err := s.ingredients.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ingredient catalog: %w", err)
		}
		cat = visibility.NewCatalog(ings)
	}

	page := s.resolver.Resolve(c, cands, f, cat)
	out := make([]convert.RecipeView, 0, len(page))
	for _, r := range page {
		v, err := convert.Recipe(r, loc)
		if errors.Is(err, errs.ErrMissingTranslation) {
			metrics.MissingTranslations.Inc()
			s.log.Warn("skip recipe without translation",
				zap.String("recipe_id", r.ID),
				zap.String("language", string(loc.Language)),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Get loads one recipe. Anonymous callers only reach recipes inside the guest window.
func (s *RecipeServiceImpl) Get(ctx context.Context, c model.Caller, id string, loc convert.Locale) (convert.RecipeView, error) {
	r, err := s.recipes.Get(ctx, id)
	if err != nil {
		return convert.RecipeView{}, err
	}
	if !s.resolver.Visible(r, c) {
		return convert.RecipeView{}, errs.ErrNotFound
	}
	if !c.Authenticated() {
		public, err := s.recipes.List(ctx, s.candidates(c, visibility.Filters{}))
		if err != nil {
			return convert.RecipeView{}, fmt.Errorf("load guest window: %w", err)
		}
		if !visibility.InGuestWindow(r, public) {
			return convert.RecipeView{}, errs.ErrNotFound
		}
	}
	v, err := convert.Recipe(r, loc)
	if errors.Is(err, errs.ErrMissingTranslation) {
		metrics.MissingTranslations.Inc()
		s.log.Warn("recipe without translation", zap.String("recipe_id", r.ID), zap.Error(err))
	}
	return v, err
}

// Create stores a new draft. A reserved guest quota slot is given back when the
// recipe is not stored.
func (s *RecipeServiceImpl) Create(ctx context.Context, c model.Caller, in model.RecipeInput) (*model.Recipe, error) {
	release, err := s.policy.ReserveCreate(ctx, c)
	if err != nil {
		if errors.Is(err, errs.ErrQuotaExceeded) {
			metrics.GuestQuotaRejections.Inc()
		}
		return nil, err
	}

	r, err := s.newRecipe(c, in)
	if err == nil {
		err = s.recipes.Create(ctx, r, c.DeviceID)
	}
	if err != nil {
		if rerr := release(ctx); rerr != nil {
			s.log.Error("release guest quota", zap.String("user_id", c.UserID), zap.Error(rerr))
		}
		return nil, err
	}

	metrics.RecipesCreated.WithLabelValues(string(c.Role)).Inc()
	s.enqueueMissing(ctx, r)
	return r, nil
}

func (s *RecipeServiceImpl) newRecipe(c model.Caller, in model.RecipeInput) (*model.Recipe, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return model.NewRecipe(uid.String(), c.UserID, in, s.now())
}

// Update replaces the content with optimistic concurrency on ver.
func (s *RecipeServiceImpl) Update(ctx context.Context, c model.Caller, id string, in model.RecipeInput, baseVer int64) (*model.Recipe, error) {
	if !c.Authenticated() {
		return nil, errs.ErrNotAuthenticated
	}
	if baseVer < 1 {
		return nil, errs.Invalid("ver", "must be >= 1")
	}
	cur, err := s.recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanEdit(c, cur); err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := next.ApplyContent(in); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()
	ver, err := s.recipes.Update(ctx, next, baseVer)
	if err != nil {
		return nil, err
	}
	next.Ver = ver
	s.enqueueMissing(ctx, next)
	return next, nil
}

// Delete is admin only.
func (s *RecipeServiceImpl) Delete(ctx context.Context, c model.Caller, id string) error {
	if err := s.policy.CanDelete(c); err != nil {
		return err
	}
	return s.recipes.Delete(ctx, id)
}

// Transition plans ev against the stored state and applies it as one conditional update.
// Of two concurrent identical events exactly one succeeds.
func (s *RecipeServiceImpl) Transition(ctx context.Context, c model.Caller, id string, ev moderation.Event, reason string) (*model.Recipe, error) {
	r, err := s.recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := moderation.Plan(s.policy, c, r, ev, reason, s.now())
	if err == nil {
		r, err = s.recipes.ApplyTransition(ctx, t)
	}
	metrics.ModerationTransitions.WithLabelValues(string(ev), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.log.Info("recipe transition",
		zap.String("recipe_id", id),
		zap.String("event", string(ev)),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("by", c.UserID),
	)
	return r, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrNotAuthenticated):
		return "denied"
	default:
		return "error"
	}
}

// AdminPatch sets is_free and image_url without touching moderation state.
func (s *RecipeServiceImpl) AdminPatch(ctx context.Context, c model.Caller, id string, p RecipePatch) (*model.Recipe, error) {
	if err := s.policy.Require(c, policy.ObjRecipe, policy.ActPatch); err != nil {
		return nil, err
	}
	return PatchRecipe(ctx, s.recipes, id, p, s.now())
}

// PatchRecipe applies p to the stored recipe at its current version. It performs no
// access check and is shared with the admin CLI.
func PatchRecipe(ctx context.Context, recipes repository.RecipeRepository, id string, p RecipePatch, now time.Time) (*model.Recipe, error) {
	cur, err := recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if p.IsFree != nil {
		next.IsFree = *p.IsFree
	}
	if p.ImageURL != nil {
		u := strings.TrimSpace(*p.ImageURL)
		if err := model.ValidateImageURL(u); err != nil {
			return nil, err
		}
		next.ImageURL = u
	}
	next.UpdatedAt = now.UTC()
	ver, err := recipes.Update(ctx, next, cur.Ver)
	if err != nil {
		return nil, err
	}
	next.Ver = ver
	return next, nil
}

// enqueueMissing asks the translator for every configured language the recipe lacks.
// Failures are logged; authoring never waits on translation.
func (s *RecipeServiceImpl) enqueueMissing(ctx context.Context, r *model.Recipe) {
	if s.queue == nil {
		return
	}
	missing := i18n.Missing(r, s.languages)
	if len(missing) == 0 {
		return
	}
	if err := s.queue.Enqueue(ctx, r.ID, missing); err != nil {
		s.log.Warn("enqueue translation", zap.String("recipe_id", r.ID), zap.Error(err))
	}
}
