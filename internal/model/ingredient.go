package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/and161185/slushbook/internal/errs"
)

// Ingredient is a catalogued ingredient with per-language search keywords and
// per-country affiliate links.
type Ingredient struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Brand         string            `json:"brand,omitempty"`
	Category      string            `json:"category"`
	Brix          float64           `json:"brix"`
	DensityGPerML *float64          `json:"density_g_per_ml,omitempty"`
	PH            *float64          `json:"ph,omitempty"`
	WaterActivity *float64          `json:"water_activity,omitempty"`
	Keywords      map[Lang][]string `json:"keywords,omitempty"`
	Links         map[string]string `json:"links,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Validate checks catalog invariants.
func (i *Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errs.Invalid("name", "required")
	}
	if i.Brix < 0 || i.Brix > 100 {
		return errs.Invalid("brix", "must be within 0.0-100.0")
	}
	if i.DensityGPerML != nil && *i.DensityGPerML <= 0 {
		return errs.Invalid("density_g_per_ml", "must be > 0")
	}
	if i.PH != nil && (*i.PH < 0 || *i.PH > 14) {
		return errs.Invalid("ph", "must be within 0-14")
	}
	if i.WaterActivity != nil && (*i.WaterActivity < 0 || *i.WaterActivity > 1) {
		return errs.Invalid("water_activity", "must be within 0-1")
	}
	for l := range i.Keywords {
		if !l.Valid() {
			return errs.Invalid("keywords", fmt.Sprintf("unsupported language %q", l))
		}
	}
	for c := range i.Links {
		if len(c) != 2 || strings.ToUpper(c) != c {
			return errs.Invalid("links", fmt.Sprintf("country code %q must be ISO-3166 alpha-2", c))
		}
	}
	return nil
}

// SearchTerms returns the lower-cased name and keywords for lang.
func (i *Ingredient) SearchTerms(lang Lang) []string {
	out := []string{strings.ToLower(i.Name)}
	for _, k := range i.Keywords[lang] {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// LinkFor picks the affiliate link for country, falling back to DK and then to the
// alphabetically first country.
func (i *Ingredient) LinkFor(country string) (string, bool) {
	if len(i.Links) == 0 {
		return "", false
	}
	if u, ok := i.Links[strings.ToUpper(country)]; ok {
		return u, true
	}
	if u, ok := i.Links["DK"]; ok {
		return u, true
	}
	keys := make([]string, 0, len(i.Links))
	for k := range i.Links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return i.Links[keys[0]], true
}
