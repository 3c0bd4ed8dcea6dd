// Package convert turns domain records into the JSON views served over HTTP.
package convert

import (
	"time"

	"github.com/and161185/slushbook/internal/i18n"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/units"
)

// LineView is an ingredient line re-expressed in the caller's unit. The entered
// display pair is carried alongside.
type LineView struct {
	IngredientRef   string     `json:"ingredient_ref"`
	Quantity        float64    `json:"quantity"`
	Unit            string     `json:"unit"`
	DisplayQuantity float64    `json:"display_quantity"`
	DisplayUnit     string     `json:"display_unit"`
	UnitType        units.Type `json:"unit_type"`
}

// RecipeView is a recipe localized for one language.
type RecipeView struct {
	ID                 string               `json:"id"`
	AuthorID           string               `json:"author_id"`
	Name               string               `json:"name"`
	Description        string               `json:"description"`
	Steps              []string             `json:"steps"`
	Ingredients        []LineView           `json:"ingredients"`
	ImageURL           string               `json:"image_url"`
	DefaultLanguage    model.Lang           `json:"default_language"`
	ResolvedLanguage   model.Lang           `json:"resolved_language"`
	FallbackUsed       bool                 `json:"fallback_used"`
	AvailableLanguages []model.Lang         `json:"available_languages"`
	IsFree             bool                 `json:"is_free"`
	IsPublished        bool                 `json:"is_published"`
	ApprovalStatus     model.ApprovalStatus `json:"approval_status"`
	RejectionReason    string               `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	ApprovedAt         *time.Time           `json:"approved_at,omitempty"`
	ApprovedBy         string               `json:"approved_by,omitempty"`
	Ver                int64                `json:"ver"`
}

// Recipe localizes r for loc and re-expresses its quantities in loc's units.
// It fails with MissingTranslation when neither loc's language nor the default exists.
func Recipe(r *model.Recipe, loc Locale) (RecipeView, error) {
	l, err := i18n.Resolve(r, loc.Language)
	if err != nil {
		return RecipeView{}, err
	}
	steps := l.Steps
	if steps == nil {
		steps = []string{}
	}
	v := RecipeView{
		ID:                 r.ID,
		AuthorID:           r.AuthorID,
		Name:               l.Name,
		Description:        l.Description,
		Steps:              steps,
		Ingredients:        make([]LineView, 0, len(r.Ingredients)),
		ImageURL:           r.ImageURL,
		DefaultLanguage:    r.DefaultLanguage,
		ResolvedLanguage:   l.ResolvedLanguage,
		FallbackUsed:       l.FallbackUsed,
		AvailableLanguages: r.Languages(),
		IsFree:             r.IsFree,
		IsPublished:        r.IsPublished,
		ApprovalStatus:     r.ApprovalStatus,
		RejectionReason:    r.RejectionReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ApprovedAt:         r.ApprovedAt,
		ApprovedBy:         r.ApprovedBy,
		Ver:                r.Ver,
	}
	for _, line := range r.Ingredients {
		v.Ingredients = append(v.Ingredients, Line(line, loc))
	}
	return v, nil
}

// Line re-expresses one ingredient line. Unknown lines keep their display pair.
func Line(l model.IngredientLine, loc Locale) LineView {
	v := LineView{
		IngredientRef:   l.IngredientRef,
		Quantity:        l.DisplayQuantity,
		Unit:            l.DisplayUnit,
		DisplayQuantity: l.DisplayQuantity,
		DisplayUnit:     l.DisplayUnit,
		UnitType:        l.UnitType,
	}
	base, ok := l.BaseValue()
	if !ok {
		return v
	}
	target := loc.Unit
	if l.UnitType == units.Mass {
		target = loc.MassUnit
	}
	if target == "" {
		return v
	}
	q, err := units.FromBase(base, l.UnitType, target)
	if err != nil {
		return v
	}
	v.Quantity = units.RoundForDisplay(q)
	v.Unit = target
	return v
}

// IngredientView is a catalog entry narrowed to one language and country.
type IngredientView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Brand         string            `json:"brand,omitempty"`
	Category      string            `json:"category"`
	Brix          float64           `json:"brix"`
	DensityGPerML *float64          `json:"density_g_per_ml,omitempty"`
	PH            *float64          `json:"ph,omitempty"`
	WaterActivity *float64          `json:"water_activity,omitempty"`
	Keywords      []string          `json:"keywords"`
	Link          string            `json:"link,omitempty"`
	Links         map[string]string `json:"links,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Ingredient narrows keywords to loc's language and picks loc's affiliate link.
// withLinks also carries every country link, for catalog editors.
func Ingredient(ing *model.Ingredient, loc Locale, withLinks bool) IngredientView {
	kw := append([]string{}, ing.Keywords[loc.Language]...)
	v := IngredientView{
		ID:            ing.ID,
		Name:          ing.Name,
		Brand:         ing.Brand,
		Category:      ing.Category,
		Brix:          ing.Brix,
		DensityGPerML: ing.DensityGPerML,
		PH:            ing.PH,
		WaterActivity: ing.WaterActivity,
		Keywords:      kw,
		UpdatedAt:     ing.UpdatedAt,
	}
	if link, ok := ing.LinkFor(loc.Country); ok {
		v.Link = link
	}
	if withLinks {
		v.Links = ing.Links
	}
	return v
}
