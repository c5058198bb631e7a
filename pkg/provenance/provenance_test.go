package provenance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/esgscore/maturity/pkg/store"
)

func TestLineageStore_RecordAndQuery(t *testing.T) {
	s, err := OpenLineageStore(filepath.Join(t.TempDir(), "lineage.db"))
	if err != nil {
		t.Fatalf("OpenLineageStore: %v", err)
	}
	defer s.Close()

	row := LineageRow{
		ArtifactPath:   "data/silver/acme_2025_chunks.parquet",
		SHA256:         "abc123",
		SourceChunkIDs: []string{"doc1_p1_c0", "doc1_p2_c0"},
		ProducedAt:     "2026-01-01T00:00:00Z",
	}
	if err := s.Record(row); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.ChunksFor(row.ArtifactPath)
	if err != nil {
		t.Fatalf("ChunksFor: %v", err)
	}
	if len(got) != 2 || got[0] != "doc1_p1_c0" || got[1] != "doc1_p2_c0" {
		t.Fatalf("unexpected chunk ids: %v", got)
	}
}

func TestLineageStore_RecordIsIdempotentPerHash(t *testing.T) {
	s, err := OpenLineageStore(filepath.Join(t.TempDir(), "lineage.db"))
	if err != nil {
		t.Fatalf("OpenLineageStore: %v", err)
	}
	defer s.Close()

	row := LineageRow{ArtifactPath: "p", SHA256: "h1", SourceChunkIDs: []string{"c1"}, ProducedAt: "t1"}
	if err := s.Record(row); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(row); err != nil {
		t.Fatalf("Record (replay): %v", err)
	}
}

func TestBuildAttestation_HashesEveryArtifactInStableOrder(t *testing.T) {
	dir := t.TempDir()
	docDir := filepath.Join(dir, "doc-1")
	mustWriteFile(t, filepath.Join(docDir, "baseline", "run_1", "output.json"), []byte(`{"a":1}`))
	mustWriteFile(t, filepath.Join(docDir, "baseline", "run_2", "output.json"), []byte(`{"a":1}`))

	att, err := BuildAttestation("doc-1", docDir, []any{map[string]any{"trace_id": "x"}})
	if err != nil {
		t.Fatalf("BuildAttestation: %v", err)
	}
	if len(att.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(att.Artifacts))
	}
	if att.Artifacts[0].Path > att.Artifacts[1].Path {
		t.Fatalf("expected stable lexical order, got %+v", att.Artifacts)
	}
	if att.Artifacts[0].SHA256 == "" {
		t.Fatalf("expected a non-empty sha256")
	}
}

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLineageFromManifest_OneRowPerChunk(t *testing.T) {
	m := &store.IngestionManifest{
		DocID: "doc-1",
		Chunks: []store.ManifestChunk{
			{ChunkID: "doc-1_p1_c0", PageNo: 1, TextSHA256: "h1"},
			{ChunkID: "doc-1_p1_c1", PageNo: 1, TextSHA256: "h2"},
		},
	}
	rows := LineageFromManifest(m, "2026-01-01T00:00:00Z")
	if len(rows) != 2 {
		t.Fatalf("expected 2 lineage rows, got %d", len(rows))
	}
	if rows[0].ArtifactPath != "doc-1_p1_c0" || rows[0].SHA256 != "h1" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestLineageFromSilver_CollectsAllSurvivingChunkIDs(t *testing.T) {
	records := []store.SilverRecord{{ChunkID: "a"}, {ChunkID: "b"}}
	row := LineageFromSilver("silver.parquet", "deadbeef", records, "2026-01-01T00:00:00Z")
	if row.SHA256 != "deadbeef" {
		t.Fatalf("expected caller-supplied hash to pass through, got %q", row.SHA256)
	}
	if len(row.SourceChunkIDs) != 2 {
		t.Fatalf("expected 2 source chunk ids, got %d", len(row.SourceChunkIDs))
	}
}
