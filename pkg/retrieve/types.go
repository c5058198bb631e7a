// Package retrieve implements the hybrid lexical+semantic retriever (C3):
// a BM25-Okapi index over silver chunks, a dense cosine index backed by
// comet, and the deterministic fusion and tie-break that make retrieval
// auditable evidence for the scorer.
package retrieve

import "fmt"

// Hit is one retrieval result with both component scores attached, as
// required by the "return k entries with both component scores attached"
// contract in §4.3.
type Hit struct {
	ChunkID    string  `json:"chunk_id"`
	PageNo     int     `json:"page_no"`
	Text       string  `json:"text"` // original, uncanonicalized text for quoting
	BM25Raw    float64 `json:"bm25_raw"`
	CosineRaw  float64 `json:"cosine_raw"`
	BM25Norm   float64 `json:"bm25_norm"`
	CosineNorm float64 `json:"cosine_norm"`
	Score      float64 `json:"score"`
}

// IndexMeta is the sidecar metadata file persisted next to an index
// (spec §6 `data/index/<doc_id>/meta.json`).
type IndexMeta struct {
	ModelID            string `json:"model_id"`
	Dim                int    `json:"dim"`
	Seed               int64  `json:"seed"`
	DeterministicTimestamp string `json:"timestamp"`
	TextSHAAll         string `json:"text_sha_all"`
	N                  int    `json:"n"`
}

// IndexError is raised for missing/corrupt indexes and dim/N mismatches
// (spec §7 "IndexError" — always fatal).
type IndexError struct {
	DocID string
	Msg   string
}

func (e *IndexError) Error() string { return fmt.Sprintf("index error: doc_id=%s: %s", e.DocID, e.Msg) }

// AlphaError is raised when the fusion weight α falls outside [0,1]
// (spec §4.3 "α outside [0,1] → fatal").
type AlphaError struct{ Alpha float64 }

func (e *AlphaError) Error() string { return fmt.Sprintf("retrieve: alpha %v outside [0,1]", e.Alpha) }
