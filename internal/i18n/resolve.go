// Package i18n resolves recipe display fields per language and handles the
// flat/nested UI-locale bundles used by the translation tooling.
package i18n

import (
	"fmt"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
)

// Localized is a recipe whose display fields were resolved for one language.
// All other recipe fields are carried unchanged in Recipe.
type Localized struct {
	Recipe            *model.Recipe
	RequestedLanguage model.Lang
	ResolvedLanguage  model.Lang
	FallbackUsed      bool

	Name        string
	Description string
	Steps       []string
}

// Resolve fills name, description and steps from translations[lang], falling back to
// the recipe's default language. An empty lang resolves the default language.
func Resolve(r *model.Recipe, lang model.Lang) (Localized, error) {
	out := Localized{Recipe: r, RequestedLanguage: lang}
	if lang != "" {
		if t, ok := r.Translations[lang]; ok {
			out.ResolvedLanguage = lang
			fill(&out, t)
			return out, nil
		}
	}
	t, ok := r.Translations[r.DefaultLanguage]
	if !ok {
		return Localized{}, fmt.Errorf("recipe %s: %w: neither %q nor default %q", r.ID, errs.ErrMissingTranslation, lang, r.DefaultLanguage)
	}
	out.ResolvedLanguage = r.DefaultLanguage
	out.FallbackUsed = lang != "" && lang != r.DefaultLanguage
	fill(&out, t)
	return out, nil
}

func fill(out *Localized, t model.Translation) {
	out.Name = t.Name
	out.Description = t.Description
	out.Steps = append([]string(nil), t.Steps...)
}

// Missing returns the languages among want that r has no translation for.
func Missing(r *model.Recipe, want []model.Lang) []model.Lang {
	var out []model.Lang
	for _, l := range want {
		if _, ok := r.Translations[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}
