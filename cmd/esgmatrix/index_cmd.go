package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/config"
	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/retrieve"
	"github.com/esgscore/maturity/pkg/store"
)

func newIndexCmd() *cobra.Command {
	var (
		org   string
		year  int
		docID string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Consolidate bronze into silver and build the hybrid retrieval index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if docID == "" {
				docID = fmt.Sprintf("%s_%d", org, year)
			}

			consolidator := &store.Consolidator{BronzeRoot: cfg.DataRoot + "/bronze", SilverRoot: cfg.DataRoot + "/silver"}
			silverPath, err := consolidator.Consolidate(org, year)
			if err != nil {
				return fmt.Errorf("consolidate silver: %w", err)
			}
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
				Cache: c, ModelID: cfg.EmbeddingModelID, Dim: 0,
				Call: retrieve.NewOpenAICompatibleCall(cfg.EmbeddingAPIBase, cfg.EmbeddingAPIKey),
			}

			idx, err := retrieve.BuildIndex(context.Background(), retrieve.BuildOptions{
				Root: cfg.DataRoot + "/index", DocID: docID, Silver: silver,
				Embedder: embedder, Clock: clock, Seed: cfg.Seed,
				BM25K1: 1.5, BM25B: 0.75,
			})
			if err != nil {
				return err
			}
			fmt.Printf("index built doc_id=%s chunks=%d\n", docID, idx.Len())
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
