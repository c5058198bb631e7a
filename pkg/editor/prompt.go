package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/esgscore/maturity/pkg/rubric"
)

// systemPrompt fixes the fidelity guards every call carries regardless of
// provider (spec §4.7 "Prompts instruct..."). It is part of the cache key
// input, so changing a single word here is itself a cache-breaking change
// — by design, since the narrative is a pure function of prompt text.
const systemPrompt = `You write grounded ESG maturity narratives. Rules:
- The executive summary must be no more than 200 words.
- Each per-theme analysis is 3 to 4 sentences and must reference the page numbers of the quotes given.
- Never introduce a metric, date, or claim that is not present in the quotes given.
- If a theme's confidence is below 0.7, state the limitation explicitly in that theme's analysis.
- Write only from the material given; do not use outside knowledge of the company.`

// stageLine renders a theme score as a single fact line a prompt can cite
// without re-deriving anything.
func stageLine(sc rubric.ThemeScore) string {
	stage := "null (insufficient_evidence)"
	if sc.Stage != nil {
		stage = strconv.Itoa(*sc.Stage)
	}
	return fmt.Sprintf("- %s: stage=%s confidence=%.2f descriptor=%q", sc.Theme, stage, sc.Confidence, sc.Descriptor)
}

// summaryPrompt composes the executive-summary prompt: company, year, and
// every theme's stage (spec §4.7 "compose prompts that carry (company,
// year, stages, and literal quote/page pairs)").
func summaryPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nFiscal year: %d\n\n", in.Company, in.FiscalYear)
	b.WriteString("Theme stages:\n")
	for _, sc := range in.Scores {
		b.WriteString(stageLine(sc))
		b.WriteByte('\n')
	}
	b.WriteString("\nWrite the executive summary (<=200 words).")
	return b.String()
}

// themePrompt composes the per-theme analysis prompt, carrying only that
// theme's score plus its own literal, page-anchored quotes — never the
// whole doc's evidence, so the model cannot cross-cite another theme's
// figures into this one.
func themePrompt(in Input, sc rubric.ThemeScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nFiscal year: %d\nTheme: %s\n", in.Company, in.FiscalYear, sc.Theme)
	b.WriteString(stageLine(sc))
	b.WriteString("\nQuotes (page: text):\n")
	for _, q := range in.QuotesByTheme[sc.Theme] {
		fmt.Fprintf(&b, "- p.%d: %q\n", q.PageNo, q.Text)
	}
	if sc.Confidence < confidenceLimitationThreshold {
		b.WriteString("\nConfidence is below 0.7 for this theme: the analysis must state that limitation explicitly.\n")
	}
	b.WriteString("\nWrite the per-theme analysis (3-4 sentences, cite page numbers).")
	return b.String()
}
