package rubric

import (
	"strings"

	"github.com/esgscore/maturity/pkg/evidence"
)

// matcher decides whether a theme's stage fires against the concatenated
// evidence text, independent of generic keyword matching. Special-cased
// themes (RD, GHG, RMM) register precedence matchers ahead of the generic
// keyword matcher (spec §4.5 step 2 "illustrative" precedence list).
type matcher func(allText string, evidenceTexts []string, stageKeywords []string) bool

// specialMatchers holds the theme-specific precedence overrides. Keyed by
// theme code, then by stage, each entry replaces the generic keyword
// matcher for that (theme, stage): its verdict alone decides whether the
// stage fires, and the stage keywords are only scanned if the matcher
// itself does so (spec P8 "Rubric ordering").
var specialMatchers = map[string]map[int]matcher{
	"RD": {
		0: rdStageZeroBrochure,
	},
	"GHG": {
		3: ghgLimitedAssurance,
		4: ghgReasonableAssurance,
	},
	"RMM": {
		2: rmmFourPillarImplicit,
	},
}

// rdStageZeroBrochure implements "short promotional phrasing such as 'see
// our brochure' on a <200-character text takes precedence over generic
// framework boosts" (spec §4.5, P8 "brochure-short-text ⇒ RD Stage 0").
func rdStageZeroBrochure(_ string, evidenceTexts []string, keywords []string) bool {
	for _, t := range evidenceTexts {
		if len(t) < 200 && evidence.ContainsAny(t, keywords) {
			return true
		}
	}
	return false
}

// ghgLimitedAssurance checks "limited assurance" before generic
// "third-party assurance" so it is never misclassified as Stage 4
// ("reasonable assurance") — spec §4.5, P8 "limited assurance ⇒ GHG Stage
// 3 (not Stage 4)".
func ghgLimitedAssurance(allText string, _ []string, _ []string) bool {
	return strings.Contains(strings.ToLower(allText), "limited assurance")
}

// ghgReasonableAssurance only fires when "reasonable assurance" literally
// appears and "limited assurance" does not — the two phrases are mutually
// exclusive evidence of different assurance levels.
func ghgReasonableAssurance(allText string, _ []string, _ []string) bool {
	lc := strings.ToLower(allText)
	return strings.Contains(lc, "reasonable assurance") && !strings.Contains(lc, "limited assurance")
}

// rmmFourPillarImplicit recognizes implicit four-pillar coverage (TCFD's
// governance / strategy / risk management / metrics-and-targets) even
// without explicit scenario-testing verbs — spec §4.5, P8 "TCFD four-
// pillar mention ⇒ RMM Stage 2 (not Stage 0)".
func rmmFourPillarImplicit(allText string, _ []string, _ []string) bool {
	pillars := []string{"governance", "strategy", "risk management", "metrics and targets"}
	lc := strings.ToLower(allText)
	count := 0
	for _, p := range pillars {
		if strings.Contains(lc, p) {
			count++
		}
	}
	return count >= 4
}

// frameworkBoostApplies implements the RD "framework-boost applies only
// when the framework token appears in the evidence text, not merely as a
// hint parameter" rule (spec §4.5 step 2, P8 "RD framework boost requires
// in-text mention of the framework").
func frameworkBoostApplies(evidenceTexts []string) bool {
	for _, t := range evidenceTexts {
		if len(evidence.DetectedFrameworks(t)) > 0 {
			return true
		}
	}
	return false
}
