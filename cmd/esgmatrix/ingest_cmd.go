package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/config"
	"github.com/esgscore/maturity/pkg/store"
)

func newIngestCmd() *cobra.Command {
	var (
		org    string
		year   int
		theme  string
		docID  string
		pdf    string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract a PDF disclosure into the bronze chunk layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if docID == "" {
				docID = fmt.Sprintf("%s_%d", org, year)
			}
			raw, err := os.ReadFile(pdf)
			if err != nil {
				return fmt.Errorf("read pdf: %w", err)
			}
			ing := &store.Ingester{Root: cfg.DataRoot + "/bronze", MinChars: cfg.ChunkMinChars}
			manifest, err := ing.Ingest(docID, org, year, theme, raw)
			if err != nil {
				return err
			}
			fmt.Printf("ingested doc_id=%s chunks=%d pages=%d-%d warnings=%d\n",
				manifest.DocID, manifest.ChunkCount, manifest.FirstPage, manifest.LastPage, len(manifest.Warnings))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization id (required)")
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (required)")
	cmd.Flags().StringVar(&theme, "theme", "", "theme hint used for bronze partitioning")
	cmd.Flags().StringVar(&docID, "doc-id", "", "document id (defaults to <org>_<year>)")
	cmd.Flags().StringVar(&pdf, "pdf", "", "path to the source PDF (required)")
	cmd.MarkFlagRequired("org")
	cmd.MarkFlagRequired("year")
	cmd.MarkFlagRequired("pdf")

	return cmd
}
