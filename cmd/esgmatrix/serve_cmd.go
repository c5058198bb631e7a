package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/config"
	"github.com/esgscore/maturity/pkg/cache"
	"github.com/esgscore/maturity/pkg/determinism"
	"github.com/esgscore/maturity/pkg/mcpserver"
	"github.com/esgscore/maturity/pkg/retrieve"
)

func newServeMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the read-only query_evidence MCP tool over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
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
			srv := mcpserver.New(filepath.Join(cfg.DataRoot, "index"), embedder, 1.5, 0.75)
			fmt.Fprintln(cmd.OutOrStdout(), "serving query_evidence over stdio")
			return mcpserver.Serve(cmd.Context(), srv)
		},
	}
	return cmd
}
