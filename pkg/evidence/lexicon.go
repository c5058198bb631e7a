// Package evidence implements the per-theme evidence selector (C4): it
// turns a fused top-K retrieval into a page-diverse, verbatim evidence
// pool that the rubric scorer is allowed to cite.
package evidence

import "strings"

// Theme is one of the seven ESG assessment codes named in the rubric
// (spec GLOSSARY). Order here is insignificant; the rubric's own ordered
// theme list governs scoring iteration order (spec §5).
type Theme string

const (
	ThemeTSP Theme = "TSP" // Transition Strategy & Planning
	ThemeOSP Theme = "OSP" // Operational Sustainability Practices
	ThemeDM  Theme = "DM"  // Data Management & Disclosure Quality
	ThemeGHG Theme = "GHG" // Greenhouse Gas Accounting & Assurance
	ThemeRD  Theme = "RD"  // Reporting Disclosure
	ThemeEI  Theme = "EI"  // Environmental Impact Management
	ThemeRMM Theme = "RMM" // Risk Management & Mitigation
)

// AllThemes lists the seven codes in the rubric's canonical order.
var AllThemes = []Theme{ThemeTSP, ThemeOSP, ThemeDM, ThemeGHG, ThemeRD, ThemeEI, ThemeRMM}

// lexicon is a small, fixed per-theme keyword list used for two purposes:
// (1) cutting a quote that is "about" the theme (§4.4 step 3), and (2)
// detecting framework tokens for the RD framework boost (§4.5 step 2).
// Fixed data only — no runtime drift (spec §4.5 "Determinism").
var lexicon = map[Theme][]string{
	ThemeTSP: {"transition plan", "net zero", "net-zero", "decarbonization", "science based target", "sbti"},
	ThemeOSP: {"energy efficiency", "waste reduction", "water management", "supply chain", "operational"},
	ThemeDM:  {"data quality", "materiality assessment", "disclosure controls", "assurance scope"},
	ThemeGHG: {"scope 1", "scope 2", "scope 3", "greenhouse gas", "ghg emissions", "limited assurance", "reasonable assurance", "third-party assurance"},
	ThemeRD:  {"gri", "sasb", "tcfd", "issb", "sustainability report", "brochure"},
	ThemeEI:  {"biodiversity", "emissions", "pollution", "resource use", "environmental impact"},
	ThemeRMM: {"climate risk", "risk management", "governance", "scenario analysis", "metrics and targets"},
}

// FrameworkTokens lists the reporting-framework acronyms the RD framework
// boost requires to appear in-text (spec §4.5 "applies only when the
// framework token appears in the evidence text").
var FrameworkTokens = []string{"GRI", "SASB", "TCFD", "ISSB"}

// KeywordsFor returns the fixed lexicon for a theme.
func KeywordsFor(t Theme) []string { return lexicon[t] }

// ContainsAny reports whether text contains any of the given lowercase
// keywords, case-insensitively.
func ContainsAny(text string, keywords []string) bool {
	lc := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lc, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// DetectedFrameworks returns which of FrameworkTokens literally appear in
// text (case-insensitive), preserving FrameworkTokens' order.
func DetectedFrameworks(text string) []string {
	lc := strings.ToLower(text)
	var found []string
	for _, tok := range FrameworkTokens {
		if strings.Contains(lc, strings.ToLower(tok)) {
			found = append(found, tok)
		}
	}
	return found
}
