// Package editor implements the grounded narrative generator (C7): it
// post-edits the rubric scorer's output into a human-readable executive
// summary and per-theme analysis, entirely through the fetch/replay
// cache, with no retry and no unsourced claims.
package editor

import "github.com/esgscore/maturity/pkg/rubric"

// ThemeNarrative is one theme's narrative paragraph plus an optional
// low-confidence limitation note (spec §4.7 "per-theme 3-4 sentences
// referencing specific pages"). The quotes it was generated from are not
// carried here.
type ThemeNarrative struct {
	Theme      string `json:"theme"`
	Text       string `json:"text"`
	Limitation string `json:"limitation,omitempty"`
}

// Narrative is the single narrative artifact emitted per doc (spec §4.7
// "Outputs: a single narrative artifact per doc").
type Narrative struct {
	DocID            string           `json:"doc_id"`
	ExecutiveSummary string           `json:"executive_summary"`
	Themes           []ThemeNarrative `json:"themes"`
	ModelID          string           `json:"model_id"`
}

// Input is everything the editor needs for one doc: the scores plus the
// page-anchored quotes that justify them, keyed by theme.
type Input struct {
	DocID        string
	Company      string
	FiscalYear   int
	Scores       []rubric.ThemeScore
	QuotesByTheme map[string][]Quote
}

// Quote is one literal, page-anchored evidence string a prompt may cite.
// Carrying only what Select already verified keeps the editor from ever
// inventing a page number or figure (spec §4.7 "do not introduce metrics,
// dates, or claims absent from the evidence").
type Quote struct {
	PageNo int
	Text   string
}

// confidenceLimitationThreshold is the cutoff below which the editor must
// state the limitation explicitly (spec §4.7 step (d)).
const confidenceLimitationThreshold = 0.7

// EditorError wraps a provider or cache failure that prevented narrative
// generation for a doc.
type EditorError struct {
	DocID string
	Msg   string
}

func (e *EditorError) Error() string { return "editor: doc " + e.DocID + ": " + e.Msg }
