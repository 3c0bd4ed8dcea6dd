// Package units converts ingredient quantities between volume and mass units
// and picks per-locale display units.
package units

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/and161185/slushbook/internal/errs"
)

// Type is the family a unit belongs to.
type Type string

const (
	Volume  Type = "volume"
	Mass    Type = "mass"
	Unknown Type = "unknown"
)

// Base units per family.
const (
	BaseVolume = "ml"
	BaseMass   = "g"
)

// Factors to millilitres.
var volumeToML = map[string]float64{
	"ml":       1,
	"dl":       100,
	"l":        1000,
	"cup":      240,
	"fl oz":    29.5735,
	"tbsp":     14.7868,
	"tsp":      4.9289,
	"pint":     473.176,
	"quart":    946.353,
	"gallon":   3785.41,
	"cup uk":   284.131,
	"fl oz uk": 28.4131,
	"pint uk":  568.261,
}

// Factors to grams. "oz" is mass only; the volume ounce is "fl oz".
var massToG = map[string]float64{
	"g":  1,
	"kg": 1000,
	"oz": 28.3495,
}

// Canonical folds case, trims and collapses inner whitespace ("Fl  OZ " -> "fl oz").
func Canonical(unit string) string {
	return strings.Join(strings.Fields(strings.ToLower(unit)), " ")
}

// Kind reports the family of unit, Unknown when unrecognized.
func Kind(unit string) Type {
	u := Canonical(unit)
	if _, ok := volumeToML[u]; ok {
		return Volume
	}
	if _, ok := massToG[u]; ok {
		return Mass
	}
	return Unknown
}

func factor(unit string) (float64, Type, error) {
	u := Canonical(unit)
	if f, ok := volumeToML[u]; ok {
		return f, Volume, nil
	}
	if f, ok := massToG[u]; ok {
		return f, Mass, nil
	}
	return 0, Unknown, fmt.Errorf("%w: %q", errs.ErrUnknownUnit, unit)
}

// ToBase converts quantity in unit to millilitres (volume) or grams (mass).
func ToBase(quantity float64, unit string) (float64, Type, error) {
	f, t, err := factor(unit)
	if err != nil {
		return 0, Unknown, err
	}
	return quantity * f, t, nil
}

// FromBase converts a base value of family stored into target.
func FromBase(value float64, stored Type, target string) (float64, error) {
	f, t, err := factor(target)
	if err != nil {
		return 0, err
	}
	if t != stored {
		return 0, fmt.Errorf("%w: %s value into %q", errs.ErrUnitTypeMismatch, stored, target)
	}
	return value / f, nil
}

// RoundForDisplay rounds to two decimals. Storage never carries rounded values.
func RoundForDisplay(v float64) float64 {
	return math.Round(v*100) / 100
}

// localeKey maps country codes onto the locale keys used by the unit tables.
func localeKey(code string) string {
	c := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(code)), "-", "_")
	switch c {
	case "dk":
		return "da"
	case "us":
		return "en_us"
	case "gb", "uk", "ie":
		return "en"
	case "at":
		return "de"
	case "be":
		return "fr"
	}
	return c
}

// DefaultUnitFor returns the default volume display unit for a locale/country code.
func DefaultUnitFor(code string) string {
	if localeKey(code) == "en_us" {
		return "cup"
	}
	return BaseVolume
}

// DefaultMassUnitFor returns the default mass display unit for a locale/country code.
func DefaultMassUnitFor(code string) string {
	if localeKey(code) == "en_us" {
		return "oz"
	}
	return BaseMass
}

var allowed = map[string][]string{
	"da":    {"ml", "dl", "l", "g"},
	"de":    {"ml", "l", "g"},
	"fr":    {"ml", "l", "g"},
	"en":    {"ml", "l", "oz", "g"},
	"en_us": {"cup", "tbsp", "tsp", "fl oz", "oz", "g"},
}

// AllowedUnitsFor returns the unit whitelist for a locale/country code.
// Unknown codes get the "en" list.
func AllowedUnitsFor(code string) []string {
	list, ok := allowed[localeKey(code)]
	if !ok {
		list = allowed["en"]
	}
	return append([]string(nil), list...)
}

// Known returns every recognized unit name, sorted.
func Known() []string {
	out := make([]string, 0, len(volumeToML)+len(massToG))
	for u := range volumeToML {
		out = append(out, u)
	}
	for u := range massToG {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
