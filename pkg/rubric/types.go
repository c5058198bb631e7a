// Package rubric implements the evidence-first stage scorer (C5): a
// schema-validated, immutable rubric loaded once at startup, and a pure
// function of (rubric, evidence pool) that assigns a stage 0-4 per theme.
package rubric

import "fmt"

// StageDescriptor is one theme's stage 0-4 definition: label, descriptor
// text, and the fixed keyword list a matcher scans evidence quotes for.
type StageDescriptor struct {
	Stage      int      `json:"stage"`
	Label      string   `json:"label"`
	Descriptor string   `json:"descriptor"`
	Keywords   []string `json:"keywords"`
	MinEvidence int     `json:"min_evidence,omitempty"`
}

// ThemeRubric is one theme's ordered stage ladder.
type ThemeRubric struct {
	Code   string            `json:"code"`
	Name   string            `json:"name"`
	Stages []StageDescriptor `json:"stages"`
}

// Rubric is the versioned, immutable scoring document loaded once at
// process start (spec §3 "Rubric"). The canonical form is this
// schema-validated JSON; YAML mirrors exist only for human editing and
// must never be read at runtime (spec §3).
type Rubric struct {
	Version                  string        `json:"rubric_version"`
	EvidenceMinPerStageClaim int           `json:"evidence_min_per_stage_claim"`
	Themes                   []ThemeRubric `json:"themes"`
}

// ThemeByCode looks up a theme's rubric entry, in the document's declared
// order (spec §5 "theme order is iteration order of the rubric's ordered
// theme list").
func (r *Rubric) ThemeByCode(code string) (*ThemeRubric, error) {
	for i := range r.Themes {
		if r.Themes[i].Code == code {
			return &r.Themes[i], nil
		}
	}
	return nil, &RubricError{Msg: fmt.Sprintf("unknown theme code %q", code)}
}

// OrderedThemeCodes returns theme codes in rubric-declared order.
func (r *Rubric) OrderedThemeCodes() []string {
	codes := make([]string, len(r.Themes))
	for i, t := range r.Themes {
		codes[i] = t.Code
	}
	return codes
}

// RubricError is the taxonomy's fatal "unknown theme; stage out of range"
// class (spec §7 "RubricError").
type RubricError struct{ Msg string }

func (e *RubricError) Error() string { return "rubric error: " + e.Msg }
