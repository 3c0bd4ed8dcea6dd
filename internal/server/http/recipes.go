package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/moderation"
	"github.com/and161185/slushbook/internal/service"
	"github.com/and161185/slushbook/internal/visibility"
)

type translationDTO struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Steps       []string `json:"steps" validate:"max=100"`
}

type lineDTO struct {
	IngredientRef string  `json:"ingredient_ref" validate:"required,max=200"`
	Quantity      float64 `json:"quantity" validate:"gte=0"`
	Unit          string  `json:"unit" validate:"required,max=20"`
}

type recipeRequest struct {
	DefaultLanguage string                    `json:"default_language" validate:"required"`
	Translations    map[string]translationDTO `json:"translations" validate:"required,min=1,dive"`
	Ingredients     []lineDTO                 `json:"ingredients" validate:"max=100,dive"`
	ImageURL        string                    `json:"image_url" validate:"omitempty,url"`
	// Ver is the base version of an update; creates ignore it.
	Ver int64 `json:"ver" validate:"gte=0"`
}

type transitionRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type adminPatchRequest struct {
	IsFree   *bool   `json:"is_free"`
	ImageURL *string `json:"image_url"`
}

func (req recipeRequest) input() model.RecipeInput {
	in := model.RecipeInput{
		DefaultLanguage: model.Lang(strings.TrimSpace(req.DefaultLanguage)),
		Translations:    make(map[model.Lang]model.Translation, len(req.Translations)),
		Ingredients:     make([]model.LineInput, 0, len(req.Ingredients)),
		ImageURL:        req.ImageURL,
	}
	for lang, t := range req.Translations {
		in.Translations[model.Lang(lang)] = model.Translation{Name: t.Name, Description: t.Description, Steps: t.Steps}
	}
	for _, l := range req.Ingredients {
		in.Ingredients = append(in.Ingredients, model.LineInput{IngredientRef: l.IngredientRef, Quantity: l.Quantity, Unit: l.Unit})
	}
	return in
}

// terms collects repeated, comma separated query parameters.
func terms(groups ...[]string) []string {
	var out []string
	for _, vals := range groups {
		for _, v := range vals {
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					out = append(out, t)
				}
			}
		}
	}
	return out
}

func parseFilters(r *http.Request) (visibility.Filters, error) {
	q := r.URL.Query()
	f := visibility.Filters{
		Include: terms(q["include_ingredients"], q["include"]),
		Exclude: terms(q["exclude_ingredients"], q["exclude"]),
	}
	if v := q.Get("language"); v != "" {
		lang, ok := model.ParseLang(v)
		if !ok {
			return f, errs.Invalid("language", "unsupported")
		}
		f.Language = lang
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errs.Invalid("limit", "must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errs.Invalid("offset", "must be a non-negative integer")
		}
		f.Offset = n
	}
	if v := q.Get("only_mine"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.Invalid("only_mine", "must be a boolean")
		}
		f.OnlyMine = b
	}
	return f, nil
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	views, err := s.svc.Recipes.List(ctx, CallerFromCtx(ctx), f, LocaleFromCtx(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := s.svc.Recipes.Get(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id"), LocaleFromCtx(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// createRecipe stores a draft. Guests are charged against the create quota.
func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.svc.Recipes.Create(r.Context(), CallerFromCtx(r.Context()), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	rec, err := s.svc.Recipes.Update(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id"), req.input(), req.Ver)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.svc.Recipes.Delete(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition fires the moderation event named by the last path segment.
func (s *Server) transition(w http.ResponseWriter, r *http.Request) {
	ev, ok := moderation.ParseEvent(chi.URLParam(r, "event"))
	if !ok {
		writeError(w, errs.ErrNotFound)
		return
	}
	var req transitionRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	ctx := r.Context()
	rec, err := s.svc.Recipes.Transition(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id"), ev, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) adminPatchRecipe(w http.ResponseWriter, r *http.Request) {
	var req adminPatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsFree == nil && req.ImageURL == nil {
		writeError(w, errs.Invalid("", "nothing to patch"))
		return
	}
	ctx := r.Context()
	rec, err := s.svc.Recipes.AdminPatch(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id"), service.RecipePatch{
		IsFree:   req.IsFree,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
