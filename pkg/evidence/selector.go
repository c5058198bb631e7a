package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/esgscore/maturity/pkg/retrieve"
)

// Record is one Evidence Record per spec §3: a verbatim quote, ≤30 words,
// tied to its source chunk and page, with a content hash for provenance.
type Record struct {
	EvidenceID string `json:"evidence_id"`
	DocID      string `json:"doc_id"`
	ChunkID    string `json:"chunk_id"`
	Theme      Theme  `json:"theme"`
	Quote      string `json:"quote"`
	PageNo     int    `json:"page_no"`
	SHA256     string `json:"sha256"`
}

// Pool is the result of selecting evidence for one theme: the records, the
// distinct pages they span, and whether the top-K was exhausted without
// reaching the diversity target.
type Pool struct {
	Theme        Theme
	Records      []Record
	PagesSeen    []int
	Insufficient bool // true when |pages_seen| < 2 after exhausting top-K
}

// defaultEvidenceMin is the minimum evidence-record count Select falls back
// to when its evidenceMin argument is <= 0 (spec §3 I3).
const defaultEvidenceMin = 2

// Select runs the spec §4.4 algorithm over a fused top-K retrieval for one
// (doc, theme): accept-first-new-page with an evidence_min floor, cut a
// verbatim quote per accepted chunk, and stop once both the count (≥4) and
// page (≥2) targets are met.
func Select(docID string, theme Theme, topK []retrieve.Hit, evidenceMin int) Pool {
	if evidenceMin <= 0 {
		evidenceMin = defaultEvidenceMin
	}
	pagesSeen := roaring.New()
	var records []Record
	ordinalByChunk := map[string]int{}

	const targetCount = 4
	const targetPages = 2

	for _, hit := range topK {
		if len(records) >= targetCount && pagesSeen.GetCardinality() >= targetPages {
			break
		}
		isNewPage := !pagesSeen.Contains(uint32(hit.PageNo))
		underMin := len(records) < evidenceMin
		if !isNewPage && !underMin {
			continue
		}
		quote := cutQuote(hit.Text, theme)
		if quote == "" {
			continue
		}
		pagesSeen.Add(uint32(hit.PageNo))
		ordinal := ordinalByChunk[hit.ChunkID]
		ordinalByChunk[hit.ChunkID] = ordinal + 1
		records = append(records, Record{
			EvidenceID: fmt.Sprintf("%s::%02d", hit.ChunkID, ordinal),
			DocID:      docID,
			ChunkID:    hit.ChunkID,
			Theme:      theme,
			Quote:      quote,
			PageNo:     hit.PageNo,
			SHA256:     sha256Hex(fmt.Sprintf("%s::%s", docID, quote)),
		})
	}

	pages := make([]int, 0, pagesSeen.GetCardinality())
	it := pagesSeen.Iterator()
	for it.HasNext() {
		pages = append(pages, int(it.Next()))
	}

	return Pool{
		Theme:        theme,
		Records:      records,
		PagesSeen:    pages,
		Insufficient: len(pages) < targetPages,
	}
}

var sentenceSplitRE = regexp.MustCompile(`(?s)([^.!?]*[.!?]+)`)

// cutQuote takes the first sentence containing a theme keyword, else the
// first ≤30-word span of the original text (spec §4.4 step 3). It always
// operates on the pre-canonicalized text so the result is a guaranteed
// literal substring (I1).
func cutQuote(original string, theme Theme) string {
	if strings.TrimSpace(original) == "" {
		return ""
	}
	keywords := KeywordsFor(theme)
	for _, m := range sentenceSplitRE.FindAllString(original, -1) {
		if ContainsAny(m, keywords) {
			return capWords(strings.TrimSpace(m), 30)
		}
	}
	return capWords(strings.TrimSpace(original), 30)
}

var wordRE = regexp.MustCompile(`\S+`)

// capWords returns a literal prefix of s spanning at most max whitespace-
// separated words, cut on the exact source bytes so the quote remains a
// verbatim substring (I1) rather than a reformatted copy.
func capWords(s string, max int) string {
	spans := wordRE.FindAllStringIndex(s, -1)
	if len(spans) <= max {
		return s
	}
	end := spans[max-1][1]
	return s[:end]
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
