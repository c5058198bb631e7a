package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/config"
	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/orchestrator"
	"github.com/esgscore/maturity/pkg/retrieve"
	"github.com/esgscore/maturity/pkg/rubric"
	"github.com/esgscore/maturity/pkg/store"
)

// themeCanonicalQueries fixes the canonical query text per theme (spec
// §4.6 step 3 "a canonical theme-query"). These are part of the retrieval
// cache key's input, so they must never drift between fetch and replay.
var themeCanonicalQueries = map[string]string{
	"TSP": "transition plan net zero decarbonization targets",
	"OSP": "operational sustainability energy waste water supply chain practices",
	"DM":  "data management materiality assessment disclosure controls assurance scope",
	"GHG": "scope 1 scope 2 scope 3 greenhouse gas emissions assurance",
	"RD":  "sustainability reporting framework GRI SASB TCFD ISSB",
	"EI":  "biodiversity pollution resource use environmental impact",
	"RMM": "climate risk governance scenario analysis metrics and targets",
}

func newRunCmd() *cobra.Command {
	var (
		org   string
		year  int
		docID string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the deterministic per-document scoring matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if docID == "" {
				docID = fmt.Sprintf("%s_%d", org, year)
			}

			silverPath := filepath.Join(cfg.DataRoot, "silver", fmt.Sprintf("org_id=%s", org), fmt.Sprintf("year=%d", year), fmt.Sprintf("%s_%d_chunks.parquet", org, year))
			silver, err := store.LoadSilver(silverPath)
			if err != nil {
				return fmt.Errorf("load silver: %w", err)
			}

			clock, err := determinism.NewDeterministicClock(cfg.DeterministicTimestamp)
			if err != nil {
				return err
			}
			c, err := cache.Open(cache.Options{
				Root: cfg.CacheRoot, Phase: cache.Phase(cfg.Phase()), Clock: clock,
				FetchRatePerSec: cfg.FetchRatePerSecond, FetchTimeoutSec: cfg.FetchTimeoutSeconds,
			})
			if err != nil {
				return err
			}
			defer c.Close()

			embedder := &retrieve.Embedder{
				Cache: c, ModelID: cfg.EmbeddingModelID,
				Call: retrieve.NewOpenAICompatibleCall(cfg.EmbeddingAPIBase, cfg.EmbeddingAPIKey),
			}

			rb, err := rubric.Load("pkg/rubric/data/schema.json", fmt.Sprintf("pkg/rubric/data/%s.json", cfg.RubricVersion))
			if err != nil {
				return fmt.Errorf("load rubric: %w", err)
			}

			states, err := orchestrator.OpenStateStore(filepath.Join(cfg.ArtifactsRoot, "state.db"))
			if err != nil {
				return err
			}
			defer states.Close()

			report, err := orchestrator.RunDoc(context.Background(), orchestrator.RunConfig{
				ArtifactsRoot: cfg.ArtifactsRoot,
				IndexRoot:     filepath.Join(cfg.DataRoot, "index"),
				DocID:         docID,
				Silver:        silver,
				Rubric:        rb,
				Embedder:      embedder,
				Clock:         clock,
				Seed:          cfg.Seed,
				Alpha:         0.6,
				K:             20,
				EvidenceMin:   cfg.EvidenceMin,
				ModelVersion:  cfg.EmbeddingModelID,
				BM25K1:        1.5,
				BM25B:         0.75,
				ThemeQuery:    func(theme string) string { return themeCanonicalQueries[theme] },
				Cache:         c,
				IsReplay:      cfg.OfflineReplay,
				States:        states,
			})
			if err != nil {
				var miss *cache.CacheMissError
				if errors.As(err, &miss) {
					return &cacheMissExitError{msg: err.Error()}
				}
				return err
			}

			if err := orchestrator.WriteMatrixContract(cfg.ArtifactsRoot, []orchestrator.DocGateReport{*report}); err != nil {
				return err
			}

			fmt.Printf("doc_id=%s state=%s\n", report.DocID, report.State)
			for _, g := range report.Gates {
				fmt.Printf("  gate=%-12s passed=%v %s\n", g.Name, g.Passed, g.Detail)
				if !g.Passed {
					if code, ok := gateExitCodes[g.Name]; ok {
						return &gateExitError{gate: g.Name, code: code, msg: g.Detail}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization id (required)")
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (required)")
	cmd.Flags().StringVar(&docID, "doc-id", "", "document id (defaults to <org>_<year>)")
	cmd.MarkFlagRequired("org")
	cmd.MarkFlagRequired("year")

	return cmd
}
