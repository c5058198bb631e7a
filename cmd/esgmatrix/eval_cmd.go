package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/config"
	"github.com/esgscore/maturity/pkg/orchestrator"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Summarize a prior run's matrix_contract.json without re-running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.ArtifactsRoot, "matrix_contract.json")
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read matrix contract: %w", err)
			}
			var contract orchestrator.MatrixContract
			if err := json.Unmarshal(raw, &contract); err != nil {
				return fmt.Errorf("decode matrix contract: %w", err)
			}

			fmt.Printf("matrix status=%s\n", contract.Status)
			worst := 0
			for _, doc := range contract.Docs {
				fmt.Printf("doc_id=%s state=%s\n", doc.DocID, doc.State)
				for _, g := range doc.Gates {
					fmt.Printf("  gate=%-12s passed=%v %s\n", g.Name, g.Passed, g.Detail)
					if !g.Passed {
						if code, ok := gateExitCodes[g.Name]; ok && code > worst {
							worst = code
						}
					}
				}
			}
			if worst != 0 {
				return &gateExitError{gate: "matrix", code: worst, msg: "one or more docs failed an authenticity gate"}
			}
			return nil
		},
	}
	return cmd
}
