package store

import (
	"regexp"
	"strings"
	"unicode"
)

var hspaceRE = regexp.MustCompile(`[^\S\n]+`)
var blankRunRE = regexp.MustCompile(`\n{3,}`)

// cleanText strips NUL and non-printable control characters, then collapses
// horizontal whitespace while preserving newlines (spec §4.1 "Cleaning").
// It returns the cleaned text and the fraction of runes that were dropped
// as non-printable, used to decide CleanSuspect.
func cleanText(raw string) (cleaned string, nonPrintableFrac float64) {
	var b strings.Builder
	total := 0
	dropped := 0
	for _, r := range raw {
		total++
		if r == 0 {
			dropped++
			continue
		}
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			dropped++
			continue
		}
		b.WriteRune(r)
	}
	if total == 0 {
		return "", 0
	}
	text := strings.ReplaceAll(b.String(), "\r\n", "\n")
	text = hspaceRE.ReplaceAllString(text, " ")
	text = blankRunRE.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	return text, float64(dropped) / float64(total)
}

// suspectThreshold is the spec's 15% non-printable rejection fraction.
const suspectThreshold = 0.15

// splitParagraphs splits a page's cleaned text into chunks of at least
// minChars (default 100), breaking on blank-line paragraph boundaries, and
// merging short trailing fragments into the prior chunk so no chunk falls
// below the minimum except a final unavoidable remainder.
func splitParagraphs(text string, minChars int) []paragraphSpan {
	if minChars <= 0 {
		minChars = 100
	}
	paras := strings.Split(text, "\n\n")
	spans := make([]paragraphSpan, 0, len(paras))
	cursor := 0
	buf := strings.Builder{}
	bufStart := 0

	flush := func(end int) {
		t := strings.TrimSpace(buf.String())
		if t != "" {
			spans = append(spans, paragraphSpan{start: bufStart, end: end, text: t})
		}
		buf.Reset()
	}

	for i, p := range paras {
		if buf.Len() == 0 {
			bufStart = cursor
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
		cursor += len(p)
		if i < len(paras)-1 {
			cursor += 2 // the "\n\n" separator
		}
		if buf.Len() >= minChars {
			flush(cursor)
		}
	}
	flush(cursor)

	if len(spans) > 1 {
		last := spans[len(spans)-1]
		if len(last.text) < minChars {
			prev := spans[len(spans)-2]
			merged := paragraphSpan{start: prev.start, end: last.end, text: prev.text + "\n\n" + last.text}
			spans = append(spans[:len(spans)-2], merged)
		}
	}
	return spans
}

type paragraphSpan struct {
	start, end int
	text       string
}
