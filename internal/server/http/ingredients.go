package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/slushbook/internal/convert"
	"github.com/and161185/slushbook/internal/model"
)

type ingredientRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Brand         string              `json:"brand" validate:"max=200"`
	Category      string              `json:"category" validate:"max=100"`
	Brix          float64             `json:"brix" validate:"gte=0,lte=100"`
	DensityGPerML *float64            `json:"density_g_per_ml" validate:"omitempty,gt=0"`
	PH            *float64            `json:"ph" validate:"omitempty,gte=0,lte=14"`
	WaterActivity *float64            `json:"water_activity" validate:"omitempty,gte=0,lte=1"`
	Keywords      map[string][]string `json:"keywords"`
	Links         map[string]string   `json:"links" validate:"omitempty,dive,keys,len=2,endkeys,url"`
}

func (req ingredientRequest) ingredient(id string) *model.Ingredient {
	ing := &model.Ingredient{
		ID:            id,
		Name:          req.Name,
		Brand:         req.Brand,
		Category:      req.Category,
		Brix:          req.Brix,
		DensityGPerML: req.DensityGPerML,
		PH:            req.PH,
		WaterActivity: req.WaterActivity,
		Links:         req.Links,
	}
	if len(req.Keywords) > 0 {
		ing.Keywords = make(map[model.Lang][]string, len(req.Keywords))
		for lang, kw := range req.Keywords {
			ing.Keywords[model.Lang(lang)] = kw
		}
	}
	return ing
}

// listIngredients narrows keywords to the request language and the affiliate link to
// the request country. Catalog editors also get every link.
func (s *Server) listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ings, err := s.svc.Ingredients.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	loc := LocaleFromCtx(ctx)
	all := s.svc.Ingredients.CanSeeAllLinks(CallerFromCtx(ctx))
	out := make([]convert.IngredientView, 0, len(ings))
	for _, ing := range ings {
		out = append(out, convert.Ingredient(ing, loc, all))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ing, err := s.svc.Ingredients.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	all := s.svc.Ingredients.CanSeeAllLinks(CallerFromCtx(ctx))
	writeJSON(w, http.StatusOK, convert.Ingredient(ing, LocaleFromCtx(ctx), all))
}

func (s *Server) createIngredient(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	ing, err := s.svc.Ingredients.Create(ctx, CallerFromCtx(ctx), req.ingredient(""))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ing)
}

func (s *Server) updateIngredient(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	ing, err := s.svc.Ingredients.Update(ctx, CallerFromCtx(ctx), req.ingredient(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}

func (s *Server) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.svc.Ingredients.Delete(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
