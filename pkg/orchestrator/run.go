package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/evidence"
	"github.com/esgscore/maturity/pkg/retrieve"
	"github.com/esgscore/maturity/pkg/rubric"
	"github.com/esgscore/maturity/pkg/store"
)

// RunConfig freezes everything the spec §4.6 "Run protocol" step 1
// requires before a doc is scored: seed, deterministic_timestamp,
// offline/replay flag, and the tier policy (embedded in how Silver/Index
// were obtained by the caller).
type RunConfig struct {
	ArtifactsRoot string
	IndexRoot     string
	DocID         string
	Silver        []store.SilverRecord
	Rubric        *rubric.Rubric
	Embedder      *retrieve.Embedder
	Clock         determinism.Clock
	Seed          int64
	Alpha         float64
	K             int
	EvidenceMin   int
	ModelVersion  string
	BM25K1        float64
	BM25B         float64
	// ThemeQuery returns the fixed canonical query for a theme (spec §4.6
	// step 3 "a canonical theme-query").
	ThemeQuery func(theme string) string
	Cache      *cache.Cache
	IsReplay   bool
	States     *StateStore
}

// themePass is the result of running retrieval, selection, and scoring
// once for a single theme — everything the gates and pipeline_validation
// artifacts need.
type themePass struct {
	theme string
	topK  []retrieve.Hit
	pool  evidence.Pool
	score rubric.ThemeScore
}

// RunDoc executes the per-doc pipeline (spec §4.6 steps 2-5) and returns
// the gate report. Artifacts are written under artifacts/matrix/<doc_id>/
// per spec §6; the matrix-level matrix_contract.json is written separately
// by WriteMatrixContract.
func RunDoc(ctx context.Context, cfg RunConfig) (*DocGateReport, error) {
	setState(cfg.States, cfg.DocID, StateIndexing, "")

	idx, err := buildOrLoadIndex(ctx, cfg)
	if err != nil {
		setState(cfg.States, cfg.DocID, StateFail, err.Error())
		return nil, err
	}

	setState(cfg.States, cfg.DocID, StateRetrieving, "")

	runOnce := func(run int) ([]byte, []themePass, error) {
		passes := make([]themePass, 0, len(cfg.Rubric.Themes))
		for _, theme := range cfg.Rubric.OrderedThemeCodes() {
			q := cfg.ThemeQuery(theme)
			topK, err := idx.Query(ctx, cfg.Embedder, q, cfg.K, cfg.Alpha)
			if err != nil {
				return nil, nil, fmt.Errorf("theme %s: retrieve: %w", theme, err)
			}
			pool := evidence.Select(cfg.DocID, evidence.Theme(theme), topK, cfg.EvidenceMin)
			sc, err := rubric.Score(cfg.Rubric, theme, pool, cfg.EvidenceMin)
			if err != nil {
				return nil, nil, fmt.Errorf("theme %s: score: %w", theme, err)
			}
			passes = append(passes, themePass{theme: theme, topK: topK, pool: pool, score: *sc})
		}

		traceID, err := TraceID(cfg.DocID, cfg.Rubric.Version, cfg.ModelVersion, cfg.Clock.Now(), cfg.Seed)
		if err != nil {
			return nil, nil, err
		}
		scores := make([]rubric.ThemeScore, len(passes))
		for i, p := range passes {
			scores[i] = p.score
		}
		oc := &OutputContract{
			TraceID:                traceID,
			DocID:                  cfg.DocID,
			Scores:                 scores,
			ModelVersion:           cfg.ModelVersion,
			RubricVersion:          cfg.Rubric.Version,
			DeterministicTimestamp: cfg.Clock.Now(),
		}
		b, err := oc.CanonicalBytes()
		if err != nil {
			return nil, nil, err
		}
		return b, passes, nil
	}

	setState(cfg.States, cfg.DocID, StateSelecting, "")
	setState(cfg.States, cfg.DocID, StateScoring, "")

	layout := ArtifactLayout{Root: cfg.ArtifactsRoot, DocID: cfg.DocID}

	var lastPasses []themePass
	outputs, detGate, err := TripleReplay(func(run int) ([]byte, error) {
		b, passes, err := runOnce(run)
		if err != nil {
			return nil, err
		}
		lastPasses = passes
		if err := writeCanonicalFile(layout.RunOutputPath(run), b); err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		setState(cfg.States, cfg.DocID, StateFail, err.Error())
		return nil, err
	}

	setState(cfg.States, cfg.DocID, StateVerifying, "")

	if err := writeDeterminismReport(layout, outputs, detGate); err != nil {
		return nil, err
	}

	pools := make(map[string]evidence.Pool, len(lastPasses))
	topKs := make(map[string][]retrieve.Hit, len(lastPasses))
	scores := make([]rubric.ThemeScore, len(lastPasses))
	chunkText := make(map[string]string)
	chunkPage := make(map[string]int)
	for _, r := range cfg.Silver {
		chunkText[r.ChunkID] = r.Text
		chunkPage[r.ChunkID] = int(r.PageNo)
	}
	for i, p := range lastPasses {
		pools[p.theme] = p.pool
		topKs[p.theme] = p.topK
		scores[i] = p.score
	}

	if err := writePipelineValidation(layout, cfg.Rubric, pools, topKs, scores); err != nil {
		return nil, err
	}

	onlineCount := 0
	if cfg.Cache != nil {
		// The cache's ledger lives alongside it; the orchestrator owns
		// the offline-gate check since only it knows whether this was a
		// replay run.
		onlineCount, err = cfg.Cache.OnlineCallCount()
		if err != nil {
			return nil, err
		}
	}

	gates := []GateStatus{
		detGate,
		ParityGate(pools, topKs),
		EvidenceGate(scores, pools, cfg.EvidenceMin),
		ProvenanceGate(pools, chunkText, chunkPage),
		OfflineGate(onlineCount, cfg.IsReplay),
	}

	state := StateOK
	if !detGate.Passed || !gates[3].Passed {
		state = StateFail
	} else if !allPassed(gates) {
		state = StateRevise
	}
	setState(cfg.States, cfg.DocID, state, "")

	report := &DocGateReport{DocID: cfg.DocID, Gates: gates, State: state}
	return report, nil
}

func allPassed(gates []GateStatus) bool {
	for _, g := range gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

func setState(s *StateStore, docID string, state DocState, note string) {
	if s == nil {
		return
	}
	_ = s.SetState(docID, state, note)
}

func buildOrLoadIndex(ctx context.Context, cfg RunConfig) (*retrieve.Index, error) {
	if idx, err := retrieve.LoadIndex(cfg.IndexRoot, cfg.DocID, cfg.BM25K1, cfg.BM25B); err == nil {
		return idx, nil
	}
	return retrieve.BuildIndex(ctx, retrieve.BuildOptions{
		Root: cfg.IndexRoot, DocID: cfg.DocID, Silver: cfg.Silver,
		Embedder: cfg.Embedder, Clock: cfg.Clock, Seed: cfg.Seed,
		BM25K1: cfg.BM25K1, BM25B: cfg.BM25B,
	})
}

// writeCanonicalFile writes bytes that are already canonical JSON directly
// to disk, creating parent directories.
func writeCanonicalFile(path string, canon []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, canon, 0o644)
}
