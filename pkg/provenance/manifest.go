package provenance

import "github.com/esgscore/maturity/pkg/store"

// LineageFromManifest derives the per-chunk lineage rows for a bronze
// ingestion manifest: every chunk's own hash traces back to itself (the
// root of the lineage chain begins at extraction, spec §4.1).
func LineageFromManifest(m *store.IngestionManifest, producedAt string) []LineageRow {
	rows := make([]LineageRow, 0, len(m.Chunks))
	for _, c := range m.Chunks {
		rows = append(rows, LineageRow{
			ArtifactPath:   c.ChunkID,
			SHA256:         c.TextSHA256,
			SourceChunkIDs: []string{c.ChunkID},
			ProducedAt:     producedAt,
		})
	}
	return rows
}

// LineageFromSilver derives the lineage row for the consolidated silver
// file: the artifact is the silver parquet path (hashed on disk by the
// caller), and its source_chunk_ids are every chunk_id that survived
// deduplication into it.
func LineageFromSilver(silverPath, silverSHA256 string, records []store.SilverRecord, producedAt string) LineageRow {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ChunkID
	}
	return LineageRow{
		ArtifactPath:   silverPath,
		SHA256:         silverSHA256,
		SourceChunkIDs: ids,
		ProducedAt:     producedAt,
	}
}
