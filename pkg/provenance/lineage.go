// Package provenance implements the hash-lineage and attestation layer
// (C8): a queryable sqlite index over artifact hashes, and the byte-stable
// attestation.json bundle that is the thing actually hashed into any
// diligence claim.
package provenance

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// LineageRow is one hash-lineage record: which artifact, its hash, which
// source chunks it traces back to, and when it was produced (spec §4.6
// NEW detail "artifact_path, sha256, source_chunk_ids, produced_at").
type LineageRow struct {
	ArtifactPath   string
	SHA256         string
	SourceChunkIDs []string
	ProducedAt     string
}

// LineageStore is a queryable index over hash lineage. It is never itself
// hashed into an Output Contract or attestation bundle — it exists purely
// so an operator can ask "which source chunks fed this artifact" without
// re-parsing every manifest on disk.
type LineageStore struct {
	db *sql.DB
}

// OpenLineageStore opens (creating if necessary) the sqlite database at
// path and ensures its schema exists.
func OpenLineageStore(path string) (*LineageStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("provenance: open lineage db: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS lineage (
	artifact_path    TEXT NOT NULL,
	sha256           TEXT NOT NULL,
	source_chunk_ids TEXT NOT NULL,
	produced_at      TEXT NOT NULL,
	PRIMARY KEY (artifact_path, sha256)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("provenance: create lineage schema: %w", err)
	}
	return &LineageStore{db: db}, nil
}

func (s *LineageStore) Close() error { return s.db.Close() }

// Record inserts or replaces one lineage row, keyed by (artifact_path,
// sha256) so re-running an unchanged artifact is idempotent.
func (s *LineageStore) Record(row LineageRow) error {
	chunkIDs := joinChunkIDs(row.SourceChunkIDs)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO lineage (artifact_path, sha256, source_chunk_ids, produced_at) VALUES (?, ?, ?, ?)`,
		row.ArtifactPath, row.SHA256, chunkIDs, row.ProducedAt,
	)
	return err
}

// ChunksFor returns the source_chunk_ids recorded for an artifact path's
// most recent hash.
func (s *LineageStore) ChunksFor(artifactPath string) ([]string, error) {
	row := s.db.QueryRow(
		`SELECT source_chunk_ids FROM lineage WHERE artifact_path = ? ORDER BY produced_at DESC LIMIT 1`,
		artifactPath,
	)
	var joined string
	if err := row.Scan(&joined); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return splitChunkIDs(joined), nil
}

func joinChunkIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

func splitChunkIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(joined); i++ {
		if joined[i] == ',' {
			out = append(out, joined[start:i])
			start = i + 1
		}
	}
	out = append(out, joined[start:])
	return out
}
