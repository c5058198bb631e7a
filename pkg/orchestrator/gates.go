package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/esgscore/maturity/pkg/evidence"
	"github.com/esgscore/maturity/pkg/retrieve"
	"github.com/esgscore/maturity/pkg/rubric"
)

// GateStatus is the per-gate pass/fail outcome recorded in
// matrix_contract.json (spec §4.6 "Authenticity gates").
type GateStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DocGateReport bundles all five gates for one doc.
type DocGateReport struct {
	DocID string       `json:"doc_id"`
	Gates []GateStatus `json:"gates"`
	State DocState     `json:"state"`
}

// AllPassed reports whether every gate in the report passed.
func (r DocGateReport) AllPassed() bool {
	for _, g := range r.Gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// DeterminismGate hashes the three run outputs and requires identity
// (spec §4.6 gate 1, §8 P1).
func DeterminismGate(runOutputs [3][]byte) GateStatus {
	h1 := sha256Hex(runOutputs[0])
	h2 := sha256Hex(runOutputs[1])
	h3 := sha256Hex(runOutputs[2])
	identical := h1 == h2 && h2 == h3
	detail := fmt.Sprintf("run1=%s run2=%s run3=%s", h1, h2, h3)
	return GateStatus{Name: "determinism", Passed: identical, Detail: detail}
}

// ParityGate checks evidence_ids ⊆ fused_topk for every theme (spec §4.6
// gate 2, §3 I4, §8 P2).
func ParityGate(pools map[string]evidence.Pool, topK map[string][]retrieve.Hit) GateStatus {
	for theme, pool := range pools {
		allowed := make(map[string]bool, len(topK[theme]))
		for _, hit := range topK[theme] {
			allowed[hit.ChunkID] = true
		}
		for _, rec := range pool.Records {
			if !allowed[rec.ChunkID] {
				return GateStatus{Name: "parity", Passed: false,
					Detail: fmt.Sprintf("theme %s: evidence chunk %s not in fused top-K", theme, rec.ChunkID)}
			}
		}
	}
	return GateStatus{Name: "parity", Passed: true}
}

// EvidenceGate checks every theme claims >= evidenceMin records and >= 2
// distinct pages, or records insufficient_evidence (spec §4.6 gate 3, I3).
func EvidenceGate(scores []rubric.ThemeScore, pools map[string]evidence.Pool, evidenceMin int) GateStatus {
	for _, sc := range scores {
		if sc.Stage == nil || *sc.Stage == 0 {
			continue // gate does not apply to null/insufficient claims
		}
		pool := pools[sc.Theme]
		if len(pool.Records) < evidenceMin || len(pool.PagesSeen) < 2 {
			return GateStatus{Name: "evidence", Passed: false,
				Detail: fmt.Sprintf("theme %s: nonzero stage with insufficient evidence", sc.Theme)}
		}
	}
	return GateStatus{Name: "evidence", Passed: true}
}

// ProvenanceGate asserts every evidence quote is a literal substring of
// its referenced chunk's original text (spec §4.6 gate 4, I1, I2).
func ProvenanceGate(pools map[string]evidence.Pool, chunkText map[string]string, chunkPage map[string]int) GateStatus {
	for theme, pool := range pools {
		for _, rec := range pool.Records {
			src, ok := chunkText[rec.ChunkID]
			if !ok {
				return GateStatus{Name: "provenance", Passed: false,
					Detail: fmt.Sprintf("theme %s: evidence references unknown chunk %s", theme, rec.ChunkID)}
			}
			if !containsSubstring(src, rec.Quote) {
				return GateStatus{Name: "provenance", Passed: false,
					Detail: fmt.Sprintf("theme %s: quote for %s is not a literal substring of its chunk", theme, rec.EvidenceID)}
			}
			if chunkPage[rec.ChunkID] != rec.PageNo {
				return GateStatus{Name: "provenance", Passed: false,
					Detail: fmt.Sprintf("theme %s: evidence %s page_no mismatch with source chunk", theme, rec.EvidenceID)}
			}
		}
	}
	return GateStatus{Name: "provenance", Passed: true}
}

// OfflineGate asserts the cache ledger recorded zero online calls during
// replay (spec §4.6 gate 5).
func OfflineGate(onlineCount int, isReplay bool) GateStatus {
	if !isReplay {
		return GateStatus{Name: "offline", Passed: true, Detail: "not a replay run"}
	}
	passed := onlineCount == 0
	return GateStatus{Name: "offline", Passed: passed, Detail: fmt.Sprintf("online_calls=%d", onlineCount)}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}
