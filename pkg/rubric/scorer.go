package rubric

import (
	"strings"

	"github.com/esgscore/maturity/pkg/evidence"
)

// Stage is a maturity stage 0-4, or "not claimed" when the evidence gate
// fails (spec §3 "Theme Score", GLOSSARY "Stage").
type Stage struct {
	Valid bool
	Value int
}

// NullStage represents `stage=null` per spec §3.
var NullStage = Stage{Valid: false}

// ThemeScore is the per-theme scoring outcome (spec §3 "Theme Score").
type ThemeScore struct {
	Theme        string   `json:"theme"`
	Stage        *int     `json:"stage"` // nil when not claimed
	Confidence   float64  `json:"confidence"`
	EvidenceIDs  []string `json:"evidence_ids"`
	Reason       string   `json:"reason,omitempty"`
	RationaleRef string   `json:"rationale_ref,omitempty"`
	Descriptor   string   `json:"descriptor,omitempty"`
}

// Confidence schedule (spec §4.5 step 4, left open by §9 "Exact confidence
// schedule"): monotone in stage, bounded in [0.60, 0.90], reduced at the
// evidence-count floor. base=0.90 so a claim sitting at exactly the
// evidence-count floor still lands at >=0.80 (spec §8 scenario 4 / P8 "RD
// Stage-0 precedence": a Stage-0 claim built from exactly evidence_min
// records must have confidence >= 0.80).
const (
	baseConfidence     = 0.90
	confidenceStep     = 0.025
	confidenceCap      = 0.90
	minEvidencePenalty = 0.10
)

// Score runs the spec §4.5 per-theme algorithm against one theme's
// evidence pool.
func Score(rb *Rubric, theme string, pool evidence.Pool, evidenceMin int) (*ThemeScore, error) {
	th, err := rb.ThemeByCode(theme)
	if err != nil {
		return nil, err
	}
	if evidenceMin <= 0 {
		evidenceMin = rb.EvidenceMinPerStageClaim
	}

	evidenceIDs := make([]string, len(pool.Records))
	evidenceTexts := make([]string, len(pool.Records))
	for i, r := range pool.Records {
		evidenceIDs[i] = r.EvidenceID
		evidenceTexts[i] = r.Quote
	}

	// Step 1: evidence gate (spec §4.5 step 1, §3 I3).
	if len(pool.Records) < evidenceMin || len(pool.PagesSeen) < 2 {
		return &ThemeScore{
			Theme:       theme,
			Stage:       nil,
			Confidence:  0,
			EvidenceIDs: evidenceIDs,
			Reason:      insufficientEvidenceReason(len(pool.Records), evidenceMin, len(pool.PagesSeen)),
		}, nil
	}

	allText := strings.Join(evidenceTexts, " ")

	// Step 2-3: choose the highest stage whose matcher fires and whose
	// evidence count meets the per-stage minimum. Scan from the highest
	// stage down so ties break downward (more conservative) by construction.
	chosen := -1
	for s := 4; s >= 0; s-- {
		stageDesc := stageByNumber(th, s)
		if stageDesc == nil {
			continue
		}
		stageMin := stageDesc.MinEvidence
		if stageMin <= 0 {
			stageMin = evidenceMin
		}
		if len(pool.Records) < stageMin {
			continue
		}
		if stageFires(theme, s, allText, evidenceTexts, stageDesc.Keywords) {
			chosen = s
			break
		}
	}
	if chosen < 0 {
		chosen = 0
	}

	// RD framework boost: only a candidate, and only in-text, never a
	// blind hint-driven upgrade (spec §4.5 step 2, last bullet).
	if theme == "RD" && chosen < 2 && frameworkBoostApplies(evidenceTexts) {
		chosen = 2
	}

	confidence := stageConfidence(chosen, len(pool.Records) == evidenceMin)

	stageVal := chosen
	return &ThemeScore{
		Theme:        theme,
		Stage:        &stageVal,
		Confidence:   confidence,
		EvidenceIDs:  evidenceIDs,
		RationaleRef: th.Stages[chosen].Label,
		Descriptor:   th.Stages[chosen].Descriptor,
	}, nil
}

func insufficientEvidenceReason(n, min, pages int) string {
	return "insufficient_evidence(n=" + itoa(n) + "<" + itoa(min) + ",pages=" + itoa(pages) + "<2)"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func stageByNumber(th *ThemeRubric, stage int) *StageDescriptor {
	for i := range th.Stages {
		if th.Stages[i].Stage == stage {
			return &th.Stages[i]
		}
	}
	return nil
}

// stageFires applies the theme's special-cased precedence matcher if one
// is registered for (theme, stage); otherwise falls back to the generic
// keyword scan against the rubric's fixed stage keywords.
func stageFires(theme string, stage int, allText string, evidenceTexts, keywords []string) bool {
	if byStage, ok := specialMatchers[theme]; ok {
		if m, ok := byStage[stage]; ok {
			return m(allText, evidenceTexts, keywords)
		}
	}
	if stage == 0 {
		// Stage 0 has no positive keywords in most themes; it is the
		// floor chosen when nothing higher fires.
		return false
	}
	return evidence.ContainsAny(allText, keywords)
}

// stageConfidence implements spec §4.5 step 4: base + monotone schedule,
// capped, reduced when only the minimum evidence count is met.
func stageConfidence(stage int, atMinimumEvidence bool) float64 {
	c := baseConfidence + confidenceStep*float64(stage)
	if c > confidenceCap {
		c = confidenceCap
	}
	if atMinimumEvidence {
		c -= minEvidencePenalty
	}
	if c < 0 {
		c = 0
	}
	return c
}
