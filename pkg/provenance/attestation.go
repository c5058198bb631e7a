package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ArtifactEntry is one file's hash within an attestation bundle.
type ArtifactEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Attestation is the byte-stable bundle listing every artifact produced
// for a doc plus its canonical Output Contracts (spec §4.6 "Per run:
// attestation bundle listing every artifact with its sha256, plus the
// canonical Output Contracts"). This bundle, not the sqlite lineage index,
// is the thing a diligence reviewer actually hashes and signs.
type Attestation struct {
	DocID           string          `json:"doc_id"`
	Artifacts       []ArtifactEntry `json:"artifacts"`
	OutputContracts []any           `json:"output_contracts"`
}

// BuildAttestation walks docDir (artifacts/matrix/<doc_id>/) and hashes
// every regular file it finds, in a stable lexical order so the bundle
// itself is reproducible across runs.
func BuildAttestation(docID, docDir string, outputContracts []any) (*Attestation, error) {
	var entries []ArtifactEntry
	err := filepath.WalkDir(docDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		sum, err := sha256File(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(docDir, path)
		if err != nil {
			rel = path
		}
		entries = append(entries, ArtifactEntry{Path: rel, SHA256: sum})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return &Attestation{
		DocID:           docID,
		Artifacts:       entries,
		OutputContracts: outputContracts,
	}, nil
}

func sha256File(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
