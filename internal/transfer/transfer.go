// Package transfer reads and writes the recipe import/export document.
//
// Version 1.0 documents carry ingredient lines as display pairs only; 2.0 adds the
// normalized base values. Both are accepted on import, and legacy records may carry
// the moderation tag as "status".
package transfer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/units"
)

const (
	Version1 = "1.0"
	Version2 = "2.0"
	// CurrentVersion is written by default.
	CurrentVersion = Version2
)

// Document is the envelope of an export.
type Document struct {
	Version      string    `json:"version"`
	ExportedAt   time.Time `json:"exported_at"`
	TotalRecipes int       `json:"total_recipes"`
	Recipes      []Record  `json:"recipes"`
}

// Line is an exported ingredient line. Base values are omitted in 1.0.
type Line struct {
	IngredientRef   string     `json:"ingredient_ref"`
	DisplayQuantity float64    `json:"display_quantity"`
	DisplayUnit     string     `json:"display_unit"`
	QuantityML      *float64   `json:"quantity_ml,omitempty"`
	QuantityG       *float64   `json:"quantity_g,omitempty"`
	UnitType        units.Type `json:"unit_type,omitempty"`
}

// Record is one exported recipe.
type Record struct {
	ID              string                           `json:"id"`
	AuthorID        string                           `json:"author_id"`
	DefaultLanguage model.Lang                       `json:"default_language"`
	Translations    map[model.Lang]model.Translation `json:"translations"`
	Ingredients     []Line                           `json:"ingredients"`
	ImageURL        string                           `json:"image_url,omitempty"`
	IsFree          bool                             `json:"is_free"`
	IsPublished     bool                             `json:"is_published"`
	ApprovalStatus  model.ApprovalStatus             `json:"approval_status,omitempty"`
	Status          string                           `json:"status,omitempty"` // legacy
	RejectionReason string                           `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time                        `json:"created_at"`
	UpdatedAt       time.Time                        `json:"updated_at"`
	ApprovedAt      *time.Time                       `json:"approved_at,omitempty"`
	ApprovedBy      string                           `json:"approved_by,omitempty"`
}

// SupportedVersion reports whether v can be read and written.
func SupportedVersion(v string) bool {
	return v == Version1 || v == Version2
}

// Export builds a document of rs in the given version.
func Export(rs []*model.Recipe, version string, now time.Time) (Document, error) {
	if version == "" {
		version = CurrentVersion
	}
	if !SupportedVersion(version) {
		return Document{}, errs.Invalid("version", fmt.Sprintf("unsupported version %q", version))
	}
	d := Document{
		Version:      version,
		ExportedAt:   now.UTC(),
		TotalRecipes: len(rs),
		Recipes:      make([]Record, 0, len(rs)),
	}
	for _, r := range rs {
		d.Recipes = append(d.Recipes, recordOf(r, version))
	}
	return d, nil
}

func recordOf(r *model.Recipe, version string) Record {
	rec := Record{
		ID:              r.ID,
		AuthorID:        r.AuthorID,
		DefaultLanguage: r.DefaultLanguage,
		Translations:    r.Translations,
		Ingredients:     make([]Line, 0, len(r.Ingredients)),
		ImageURL:        r.ImageURL,
		IsFree:          r.IsFree,
		IsPublished:     r.IsPublished,
		ApprovalStatus:  r.ApprovalStatus,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ApprovedAt:      r.ApprovedAt,
		ApprovedBy:      r.ApprovedBy,
	}
	for _, l := range r.Ingredients {
		line := Line{IngredientRef: l.IngredientRef, DisplayQuantity: l.DisplayQuantity, DisplayUnit: l.DisplayUnit}
		if version != Version1 {
			line.QuantityML, line.QuantityG, line.UnitType = l.QuantityML, l.QuantityG, l.UnitType
		}
		rec.Ingredients = append(rec.Ingredients, line)
	}
	return rec
}

// Encode writes d as indented JSON.
func Encode(w io.Writer, d Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Decode reads a document. A missing version is read as 1.0.
func Decode(r io.Reader) (Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Document{}, errs.InvalidCause("document", err)
	}
	if d.Version == "" {
		d.Version = Version1
	}
	if !SupportedVersion(d.Version) {
		return Document{}, errs.Invalid("version", fmt.Sprintf("unsupported version %q", d.Version))
	}
	return d, nil
}

// legacyStatus maps the old moderation tag to approval_status; unknown tags need review.
func legacyStatus(s string) model.ApprovalStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return model.StatusDraft
	case "approved", "published":
		return model.StatusApproved
	case "rejected":
		return model.StatusRejected
	default:
		return model.StatusPending
	}
}

// Recipe converts a record to a validated recipe. Lines without base values are
// normalized from their display pair; unrecognized units become unknown lines.
func (rec Record) Recipe() (*model.Recipe, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, errs.Invalid("id", "required")
	}
	r := &model.Recipe{
		ID:              rec.ID,
		AuthorID:        rec.AuthorID,
		DefaultLanguage: rec.DefaultLanguage,
		Translations:    rec.Translations,
		Ingredients:     make([]model.IngredientLine, 0, len(rec.Ingredients)),
		ImageURL:        rec.ImageURL,
		IsFree:          rec.IsFree,
		IsPublished:     rec.IsPublished,
		ApprovalStatus:  rec.ApprovalStatus,
		RejectionReason: rec.RejectionReason,
		CreatedAt:       rec.CreatedAt.UTC(),
		UpdatedAt:       rec.UpdatedAt.UTC(),
		ApprovedBy:      rec.ApprovedBy,
	}
	if r.AuthorID == "" {
		r.AuthorID = model.SystemAuthor
	}
	if r.ApprovalStatus == "" {
		r.ApprovalStatus = legacyStatus(rec.Status)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if rec.ApprovedAt != nil {
		t := rec.ApprovedAt.UTC()
		r.ApprovedAt = &t
	}
	if r.ApprovalStatus == model.StatusApproved {
		if r.ApprovedAt == nil {
			t := r.UpdatedAt
			r.ApprovedAt = &t
		}
		if r.ApprovedBy == "" {
			r.ApprovedBy = model.SystemAuthor
		}
	}
	for i, l := range rec.Ingredients {
		line, err := l.line()
		if err != nil {
			return nil, fmt.Errorf("recipe %s: ingredients[%d]: %w", rec.ID, i, err)
		}
		r.Ingredients = append(r.Ingredients, line)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("recipe %s: %w", rec.ID, err)
	}
	return r, nil
}

func (l Line) line() (model.IngredientLine, error) {
	in := model.LineInput{IngredientRef: l.IngredientRef, Quantity: l.DisplayQuantity, Unit: l.DisplayUnit}
	// Stored base values are re-derived from the display pair; they must then be convertible.
	if l.QuantityML != nil || l.QuantityG != nil {
		return model.NormalizeLine(in)
	}
	return model.NormalizeLineLenient(in)
}
