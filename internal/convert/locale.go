package convert

import (
	"strings"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/units"
)

// Locale is the resolved display context of a request.
type Locale struct {
	Country  string     `json:"country"`
	Language model.Lang `json:"language"`
	Unit     string     `json:"default_unit"`
	MassUnit string     `json:"default_mass_unit"`
	Allowed  []string   `json:"allowed_units"`
}

// NewLocale derives display units from the language. An empty language is taken
// from the country.
func NewLocale(country string, lang model.Lang) Locale {
	country = strings.ToUpper(strings.TrimSpace(country))
	if lang == "" {
		lang = model.LangForCountry(country)
	}
	return Locale{
		Country:  country,
		Language: lang,
		Unit:     units.DefaultUnitFor(string(lang)),
		MassUnit: units.DefaultMassUnitFor(string(lang)),
		Allowed:  units.AllowedUnitsFor(string(lang)),
	}
}
