package retrieve

import (
	"math"
	"strings"
)

// BM25Index is a hand-rolled Okapi BM25 index over whitespace-tokenized
// canonical text. comet's BM25SearchIndex does not expose tunable k1/b, so
// the scoring-critical lexical path is implemented directly against the
// spec's fixed formula (k1=1.5, b=0.75 unless overridden).
type BM25Index struct {
	k1, b   float64
	docs    [][]string       // tokenized canonical text per doc
	chunkID []string         // parallel to docs
	df      map[string]int   // document frequency per term
	avgLen  float64
	n       int
}

// NewBM25Index builds an index over the given (chunkID, canonicalText)
// pairs, tokenizing on whitespace per spec §4.3 "tokenize canonical text
// by whitespace".
func NewBM25Index(k1, b float64, chunkIDs []string, canonicalTexts []string) *BM25Index {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b < 0 {
		b = 0.75
	}
	idx := &BM25Index{
		k1:      k1,
		b:       b,
		chunkID: chunkIDs,
		df:      make(map[string]int),
	}
	totalLen := 0
	for _, text := range canonicalTexts {
		toks := whitespaceTokens(text)
		idx.docs = append(idx.docs, toks)
		totalLen += len(toks)
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			idx.df[t]++
		}
	}
	idx.n = len(idx.docs)
	if idx.n > 0 {
		idx.avgLen = float64(totalLen) / float64(idx.n)
	}
	return idx
}

func whitespaceTokens(s string) []string {
	return strings.Fields(s)
}

// idf computes the BM25-Okapi inverse document frequency with the standard
// +0.5/+0.5 smoothing, floored at zero to avoid negative weights for terms
// present in more than half the corpus.
func (idx *BM25Index) idf(term string) float64 {
	df := idx.df[term]
	v := math.Log((float64(idx.n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	if v < 0 {
		return 0
	}
	return v
}

// Score returns the raw BM25 score for query tokens against document i.
func (idx *BM25Index) Score(queryTokens []string, i int) float64 {
	doc := idx.docs[i]
	docLen := float64(len(doc))
	termFreq := make(map[string]int, len(doc))
	for _, t := range doc {
		termFreq[t]++
	}
	var score float64
	for _, qt := range queryTokens {
		tf, ok := termFreq[qt]
		if !ok {
			continue
		}
		num := float64(tf) * (idx.k1 + 1)
		denom := float64(tf) + idx.k1*(1-idx.b+idx.b*docLen/nonZero(idx.avgLen))
		score += idx.idf(qt) * (num / denom)
	}
	return score
}

// ScoreAll scores the whitespace-tokenized query against every document.
func (idx *BM25Index) ScoreAll(query string) []float64 {
	qtoks := whitespaceTokens(strings.ToLower(query))
	scores := make([]float64, idx.n)
	for i := range idx.docs {
		scores[i] = idx.Score(qtoks, i)
	}
	return scores
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
