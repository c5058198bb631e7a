package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/rubric"
)

// OutputContract is the canonicalized, hash-stable scoring result for one
// doc (spec §3 "Output Contract"). Canonical JSON of this struct is the
// determinism substrate.
type OutputContract struct {
	TraceID               string               `json:"trace_id"`
	DocID                 string                `json:"doc_id"`
	Scores                []rubric.ThemeScore  `json:"scores"`
	ModelVersion          string               `json:"model_version"`
	RubricVersion         string               `json:"rubric_version"`
	DeterministicTimestamp string              `json:"deterministic_timestamp"`
}

// CanonicalBytes renders the contract as canonical JSON (spec §6 "File
// formats").
func (oc *OutputContract) CanonicalBytes() ([]byte, error) {
	raw, err := marshalAny(oc)
	if err != nil {
		return nil, err
	}
	return cache.CanonicalJSON(raw)
}

func marshalAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// TraceID computes sha256 of the canonical run parameters (spec §3
// "Output Contract.trace_id").
func TraceID(docID, rubricVersion, modelVersion, deterministicTimestamp string, seed int64) (string, error) {
	canon, err := cache.CanonicalJSON(map[string]any{
		"doc_id":         docID,
		"rubric_version": rubricVersion,
		"model_version":  modelVersion,
		"timestamp":      deterministicTimestamp,
		"seed":           seed,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// ArtifactLayout computes the bit-stable on-disk paths for one doc's
// matrix artifacts (spec §6 "On-disk layout").
type ArtifactLayout struct {
	Root  string // artifacts/matrix root
	DocID string
}

func (l ArtifactLayout) docDir() string { return filepath.Join(l.Root, l.DocID) }

func (l ArtifactLayout) RunOutputPath(run int) string {
	return filepath.Join(l.docDir(), "baseline", fmt.Sprintf("run_%d", run), "output.json")
}

func (l ArtifactLayout) DeterminismReportPath() string {
	return filepath.Join(l.docDir(), "baseline", "determinism_report.json")
}

func (l ArtifactLayout) TopKVsEvidencePath() string {
	return filepath.Join(l.docDir(), "pipeline_validation", "demo_topk_vs_evidence.json")
}

func (l ArtifactLayout) EvidenceAuditPath() string {
	return filepath.Join(l.docDir(), "pipeline_validation", "evidence_audit.json")
}

func (l ArtifactLayout) RDSourcesPath() string {
	return filepath.Join(l.docDir(), "pipeline_validation", "rd_sources.json")
}

func (l ArtifactLayout) MatrixContractPath() string {
	return filepath.Join(l.Root, "matrix_contract.json")
}

// WriteJSON writes canonical JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	generic, err := marshalAny(v)
	if err != nil {
		return err
	}
	canon, err := cache.CanonicalJSON(generic)
	if err != nil {
		return err
	}
	return os.WriteFile(path, canon, 0o644)
}

// SHA256File hashes a file's bytes on disk, used for the determinism
// report and the provenance attestation bundle.
func SHA256File(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// MatrixContract is the matrix-level summary of every doc's gate outcome
// (spec §4.6 "Emit the matrix-level matrix_contract.json"). Status is a
// matrix-wide verdict, not just a list of per-doc ones (spec §4.6 step 6
// "a matrix-wide verdict"; §7 "matrix_contract.status = \"ok\"").
type MatrixContract struct {
	Status string          `json:"status"`
	Docs   []DocGateReport `json:"docs"`
}

// matrixStatus folds every doc's state into one verdict: "fail" if any
// doc failed, else "revise" if any doc needs revision, else "ok".
func matrixStatus(reports []DocGateReport) string {
	status := string(StateOK)
	for _, r := range reports {
		switch r.State {
		case StateFail:
			return string(StateFail)
		case StateRevise:
			status = string(StateRevise)
		}
	}
	return status
}

// WriteMatrixContract writes the matrix-level summary at
// artifacts/matrix/matrix_contract.json.
func WriteMatrixContract(root string, reports []DocGateReport) error {
	layout := ArtifactLayout{Root: root}
	return WriteJSON(layout.MatrixContractPath(), MatrixContract{Status: matrixStatus(reports), Docs: reports})
}
