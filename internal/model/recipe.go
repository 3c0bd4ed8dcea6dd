package model

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/units"
)

// Translation holds the localized display fields of a recipe.
type Translation struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// IngredientLine is one ingredient of a recipe. The display pair is kept next to the
// base-unit value so display fidelity survives a round trip.
type IngredientLine struct {
	IngredientRef   string     `json:"ingredient_ref"`
	DisplayQuantity float64    `json:"display_quantity"`
	DisplayUnit     string     `json:"display_unit"`
	QuantityML      *float64   `json:"quantity_ml,omitempty"`
	QuantityG       *float64   `json:"quantity_g,omitempty"`
	UnitType        units.Type `json:"unit_type"`
}

// LineInput is an ingredient line as entered by an author.
type LineInput struct {
	IngredientRef string  `json:"ingredient_ref"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
}

// NormalizeLine computes the base-unit value for a display pair.
func NormalizeLine(in LineInput) (IngredientLine, error) {
	ref := strings.TrimSpace(in.IngredientRef)
	if ref == "" {
		return IngredientLine{}, errs.Invalid("ingredient_ref", "required")
	}
	if in.Quantity < 0 {
		return IngredientLine{}, errs.Invalid("display_quantity", "must be >= 0")
	}
	base, typ, err := units.ToBase(in.Quantity, in.Unit)
	if err != nil {
		return IngredientLine{}, errs.InvalidCause("display_unit", err)
	}
	line := IngredientLine{
		IngredientRef:   ref,
		DisplayQuantity: in.Quantity,
		DisplayUnit:     units.Canonical(in.Unit),
		UnitType:        typ,
	}
	if typ == units.Volume {
		line.QuantityML = &base
	} else {
		line.QuantityG = &base
	}
	return line, nil
}

// NormalizeLineLenient is NormalizeLine for imported legacy data: an unrecognized unit
// yields an "unknown" line carrying only the display pair.
func NormalizeLineLenient(in LineInput) (IngredientLine, error) {
	line, err := NormalizeLine(in)
	if err == nil || units.Kind(in.Unit) != units.Unknown || in.Quantity < 0 || strings.TrimSpace(in.IngredientRef) == "" {
		return line, err
	}
	return IngredientLine{
		IngredientRef:   strings.TrimSpace(in.IngredientRef),
		DisplayQuantity: in.Quantity,
		DisplayUnit:     strings.TrimSpace(in.Unit),
		UnitType:        units.Unknown,
	}, nil
}

// BaseValue returns the stored base-unit value, false for unknown lines.
func (l IngredientLine) BaseValue() (float64, bool) {
	switch {
	case l.QuantityML != nil:
		return *l.QuantityML, true
	case l.QuantityG != nil:
		return *l.QuantityG, true
	}
	return 0, false
}

func (l IngredientLine) validate() error {
	if strings.TrimSpace(l.IngredientRef) == "" {
		return errs.Invalid("ingredient_ref", "required")
	}
	if l.DisplayQuantity < 0 {
		return errs.Invalid("display_quantity", "must be >= 0")
	}
	if l.QuantityML != nil && l.QuantityG != nil {
		return errs.Invalid("quantity_ml", "quantity_ml and quantity_g are exclusive")
	}
	switch l.UnitType {
	case units.Volume:
		if l.QuantityML == nil {
			return errs.Invalid("quantity_ml", "required for volume lines")
		}
	case units.Mass:
		if l.QuantityG == nil {
			return errs.Invalid("quantity_g", "required for mass lines")
		}
	case units.Unknown:
		if l.QuantityML != nil || l.QuantityG != nil {
			return errs.Invalid("unit_type", "unknown lines carry no base quantity")
		}
	default:
		return errs.Invalid("unit_type", fmt.Sprintf("unsupported %q", l.UnitType))
	}
	return nil
}

// Recipe is the canonical shape of a recipe with its translations, ingredients,
// provenance and moderation flags.
type Recipe struct {
	ID              string               `json:"id"`
	AuthorID        string               `json:"author_id"`
	DefaultLanguage Lang                 `json:"default_language"`
	Translations    map[Lang]Translation `json:"translations"`
	Ingredients     []IngredientLine     `json:"ingredients"`
	ImageURL        string               `json:"image_url"`
	IsFree          bool                 `json:"is_free"`
	IsPublished     bool                 `json:"is_published"`
	ApprovalStatus  ApprovalStatus       `json:"approval_status"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	ApprovedBy      string               `json:"approved_by,omitempty"`
	Ver             int64                `json:"ver"`
}

// RecipeInput is the author-controlled content of a recipe.
type RecipeInput struct {
	DefaultLanguage Lang
	Translations    map[Lang]Translation
	Ingredients     []LineInput
	ImageURL        string
}

// NewRecipe builds a draft, unpublished recipe from author input.
func NewRecipe(id, authorID string, in RecipeInput, now time.Time) (*Recipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.Invalid("id", "required")
	}
	if strings.TrimSpace(authorID) == "" {
		return nil, errs.Invalid("author_id", "required")
	}
	r := &Recipe{
		ID:             id,
		AuthorID:       authorID,
		ApprovalStatus: StatusDraft,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := r.ApplyContent(in); err != nil {
		return nil, err
	}
	return r, nil
}

// ApplyContent replaces the author-controlled content and re-normalizes every line.
func (r *Recipe) ApplyContent(in RecipeInput) error {
	lines := make([]IngredientLine, 0, len(in.Ingredients))
	for i, li := range in.Ingredients {
		line, err := NormalizeLine(li)
		if err != nil {
			return prefixField(fmt.Sprintf("ingredients[%d]", i), err)
		}
		lines = append(lines, line)
	}
	tr := make(map[Lang]Translation, len(in.Translations))
	for l, t := range in.Translations {
		tr[l] = cloneTranslation(t)
	}
	r.DefaultLanguage = in.DefaultLanguage
	r.Translations = tr
	r.Ingredients = lines
	r.ImageURL = strings.TrimSpace(in.ImageURL)
	return r.Validate()
}

// Validate checks the record invariants.
func (r *Recipe) Validate() error {
	if !r.ApprovalStatus.Valid() {
		return errs.Invalid("approval_status", fmt.Sprintf("unknown status %q", r.ApprovalStatus))
	}
	if !r.DefaultLanguage.Valid() {
		return errs.Invalid("default_language", fmt.Sprintf("unsupported language %q", r.DefaultLanguage))
	}
	for l := range r.Translations {
		if !l.Valid() {
			return errs.Invalid("translations", fmt.Sprintf("unsupported language %q", l))
		}
	}
	def, ok := r.Translations[r.DefaultLanguage]
	if !ok {
		return errs.Invalid("translations."+string(r.DefaultLanguage), "default language translation required")
	}
	if strings.TrimSpace(def.Name) == "" {
		return errs.Invalid("translations."+string(r.DefaultLanguage)+".name", "required")
	}
	for i, l := range r.Ingredients {
		if err := l.validate(); err != nil {
			return prefixField(fmt.Sprintf("ingredients[%d]", i), err)
		}
	}
	if err := ValidateImageURL(r.ImageURL); err != nil {
		return err
	}
	if r.ApprovalStatus == StatusApproved && (r.ApprovedAt == nil || r.ApprovedBy == "") {
		return errs.Invalid("approved_by", "approved recipes need approved_at and approved_by")
	}
	return nil
}

// ValidateImageURL accepts an empty value or an absolute http(s) URL.
func ValidateImageURL(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.Invalid("image_url", "absolute http(s) URL expected")
	}
	return nil
}

// IsExternallyVisible reports is_published && approval_status == approved.
func (r *Recipe) IsExternallyVisible() bool {
	return r.IsPublished && r.ApprovalStatus == StatusApproved
}

// IsSystem reports whether the recipe is curated content.
func (r *Recipe) IsSystem() bool { return r.AuthorID == SystemAuthor }

// Languages returns the languages present in translations, sorted.
func (r *Recipe) Languages() []Lang {
	out := make([]Lang, 0, len(r.Translations))
	for l := range r.Translations {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy.
func (r *Recipe) Clone() *Recipe {
	c := *r
	if r.Translations != nil {
		c.Translations = make(map[Lang]Translation, len(r.Translations))
		for l, t := range r.Translations {
			c.Translations[l] = cloneTranslation(t)
		}
	}
	if r.Ingredients != nil {
		c.Ingredients = make([]IngredientLine, len(r.Ingredients))
		for i, l := range r.Ingredients {
			c.Ingredients[i] = l
			if l.QuantityML != nil {
				v := *l.QuantityML
				c.Ingredients[i].QuantityML = &v
			}
			if l.QuantityG != nil {
				v := *l.QuantityG
				c.Ingredients[i].QuantityG = &v
			}
		}
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

func cloneTranslation(t Translation) Translation {
	t.Steps = append([]string(nil), t.Steps...)
	return t
}

func prefixField(prefix string, err error) error {
	if ve, ok := err.(*errs.ValidationError); ok {
		cp := *ve
		if cp.Field == "" {
			cp.Field = prefix
		} else {
			cp.Field = prefix + "." + cp.Field
		}
		return &cp
	}
	return err
}
