// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
)

// Lang is one of the supported content languages.
type Lang string

const (
	LangDA   Lang = "da"
	LangDE   Lang = "de"
	LangFR   Lang = "fr"
	LangEN   Lang = "en"
	LangENUS Lang = "en_us"
)

// Langs lists every supported language in display order.
var Langs = []Lang{LangDA, LangDE, LangFR, LangEN, LangENUS}

// Valid reports whether l is a supported language.
func (l Lang) Valid() bool {
	switch l {
	case LangDA, LangDE, LangFR, LangEN, LangENUS:
		return true
	}
	return false
}

// ParseLang accepts language codes and BCP47-ish tags ("en-US", "da-DK", "fr_BE").
func ParseLang(s string) (Lang, bool) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if s == "" {
		return "", false
	}
	if l := Lang(s); l.Valid() {
		return l, true
	}
	primary, region, _ := strings.Cut(s, "_")
	switch primary {
	case "en":
		if region == "us" {
			return LangENUS, true
		}
		return LangEN, true
	case "da", "de", "fr":
		return Lang(primary), true
	case "nb", "no", "sv":
		// Scandinavian readers get Danish.
		return LangDA, true
	}
	return "", false
}

// LangForCountry derives the display language from an ISO-3166 alpha-2 country code.
func LangForCountry(country string) Lang {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "DK", "GL", "FO":
		return LangDA
	case "DE", "AT", "CH", "LI":
		return LangDE
	case "FR", "BE", "LU", "MC":
		return LangFR
	case "US":
		return LangENUS
	case "":
		return LangDA
	}
	return LangEN
}

// SystemAuthor tags curated content.
const SystemAuthor = "system"

// ApprovalStatus is the moderator's verdict on a recipe.
type ApprovalStatus string

const (
	StatusDraft    ApprovalStatus = "draft"
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the four moderation states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Role is a user's permission tier. Roles are totally ordered guest < pro < editor < admin.
type Role string

const (
	RoleGuest  Role = "guest"
	RolePro    Role = "pro"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Rank returns the position of r in the role order, -1 for unknown roles.
func (r Role) Rank() int {
	switch r {
	case RoleGuest:
		return 0
	case RolePro:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	}
	return -1
}

// AtLeast reports r >= other in the role order.
func (r Role) AtLeast(other Role) bool { return r.Rank() >= other.Rank() && r.Rank() >= 0 }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.Rank() >= 0 }
