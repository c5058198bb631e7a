package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/esgscore/maturity/pkg/evidence"
	"github.com/esgscore/maturity/pkg/retrieve"
	"github.com/esgscore/maturity/pkg/rubric"
)

func TestTripleReplay_IdenticalOutputsPassDeterminismGate(t *testing.T) {
	_, gate, err := TripleReplay(func(run int) ([]byte, error) {
		return []byte(`{"fixed":true}`), nil
	})
	if err != nil {
		t.Fatalf("TripleReplay: %v", err)
	}
	if !gate.Passed {
		t.Fatalf("expected determinism gate to pass, got %+v", gate)
	}
}

func TestTripleReplay_DivergentOutputFailsDeterminismGate(t *testing.T) {
	i := 0
	_, gate, err := TripleReplay(func(run int) ([]byte, error) {
		i++
		if i == 2 {
			return []byte(`{"fixed":false}`), nil
		}
		return []byte(`{"fixed":true}`), nil
	})
	if err != nil {
		t.Fatalf("TripleReplay: %v", err)
	}
	if gate.Passed {
		t.Fatalf("expected determinism gate to fail on divergent run, got %+v", gate)
	}
}

func TestParityGate_FlagsEvidenceOutsideTopK(t *testing.T) {
	pools := map[string]evidence.Pool{
		"GHG": {Theme: evidence.ThemeGHG, Records: []evidence.Record{{ChunkID: "doc_p1_c0", EvidenceID: "e1"}}},
	}
	topK := map[string][]retrieve.Hit{
		"GHG": {{ChunkID: "doc_p2_c0"}},
	}
	g := ParityGate(pools, topK)
	if g.Passed {
		t.Fatalf("expected parity gate to fail when evidence chunk is absent from top-K")
	}
}

func TestParityGate_PassesWhenEvidenceSubsetOfTopK(t *testing.T) {
	pools := map[string]evidence.Pool{
		"GHG": {Theme: evidence.ThemeGHG, Records: []evidence.Record{{ChunkID: "doc_p1_c0", EvidenceID: "e1"}}},
	}
	topK := map[string][]retrieve.Hit{
		"GHG": {{ChunkID: "doc_p1_c0"}, {ChunkID: "doc_p2_c0"}},
	}
	g := ParityGate(pools, topK)
	if !g.Passed {
		t.Fatalf("expected parity gate to pass, got %+v", g)
	}
}

func TestEvidenceGate_SkipsNullAndZeroStageClaims(t *testing.T) {
	zero := 0
	scores := []rubric.ThemeScore{{Theme: "GHG", Stage: nil}, {Theme: "RD", Stage: &zero}}
	pools := map[string]evidence.Pool{}
	g := EvidenceGate(scores, pools, 2)
	if !g.Passed {
		t.Fatalf("expected evidence gate to pass when no nonzero claims exist, got %+v", g)
	}
}

func TestEvidenceGate_FailsNonzeroStageWithThinEvidence(t *testing.T) {
	three := 3
	scores := []rubric.ThemeScore{{Theme: "GHG", Stage: &three}}
	pools := map[string]evidence.Pool{
		"GHG": {Records: []evidence.Record{{ChunkID: "a"}}, PagesSeen: []int{1}},
	}
	g := EvidenceGate(scores, pools, 2)
	if g.Passed {
		t.Fatalf("expected evidence gate to fail: only 1 record/1 page backing a nonzero stage")
	}
}

func TestProvenanceGate_FailsWhenQuoteIsNotLiteralSubstring(t *testing.T) {
	pools := map[string]evidence.Pool{
		"GHG": {Records: []evidence.Record{{ChunkID: "c1", Quote: "fabricated text", PageNo: 1, EvidenceID: "e1"}}},
	}
	chunkText := map[string]string{"c1": "actual disclosed text about scope 1 emissions"}
	chunkPage := map[string]int{"c1": 1}
	g := ProvenanceGate(pools, chunkText, chunkPage)
	if g.Passed {
		t.Fatalf("expected provenance gate to fail on a non-substring quote")
	}
}

func TestProvenanceGate_FailsOnPageMismatch(t *testing.T) {
	pools := map[string]evidence.Pool{
		"GHG": {Records: []evidence.Record{{ChunkID: "c1", Quote: "scope 1 emissions", PageNo: 2, EvidenceID: "e1"}}},
	}
	chunkText := map[string]string{"c1": "disclosed scope 1 emissions figures"}
	chunkPage := map[string]int{"c1": 1}
	g := ProvenanceGate(pools, chunkText, chunkPage)
	if g.Passed {
		t.Fatalf("expected provenance gate to fail on page_no mismatch")
	}
}

func TestOfflineGate_IgnoredOutsideReplay(t *testing.T) {
	g := OfflineGate(5, false)
	if !g.Passed {
		t.Fatalf("expected offline gate to pass trivially outside replay mode")
	}
}

func TestOfflineGate_FailsOnAnyOnlineCallDuringReplay(t *testing.T) {
	g := OfflineGate(1, true)
	if g.Passed {
		t.Fatalf("expected offline gate to fail when replay recorded an online call")
	}
}

func TestStateStore_RoundTripsDocState(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStateStore(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("OpenStateStore: %v", err)
	}
	defer s.Close()

	if err := s.SetState("doc-1", StateIndexing, ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := s.SetState("doc-1", StateOK, ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	got, err := s.State("doc-1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got != StateOK {
		t.Fatalf("expected final state %q, got %q", StateOK, got)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all["doc-1"] != StateOK {
		t.Fatalf("All() did not reflect latest state: %+v", all)
	}
}

func TestTraceID_StableForIdenticalInputs(t *testing.T) {
	a, err := TraceID("doc-1", "v3.0", "claude-x", "2026-01-01T00:00:00Z", 42)
	if err != nil {
		t.Fatalf("TraceID: %v", err)
	}
	b, err := TraceID("doc-1", "v3.0", "claude-x", "2026-01-01T00:00:00Z", 42)
	if err != nil {
		t.Fatalf("TraceID: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical trace ids for identical inputs, got %s vs %s", a, b)
	}
}
