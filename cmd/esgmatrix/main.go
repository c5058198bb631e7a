// esgmatrix runs the ESG maturity evaluation engine: ingest disclosures
// into the layered chunk store, build hybrid retrieval indexes, and run
// the deterministic, gate-enforced scoring matrix.
//
// Usage:
//
//	esgmatrix ingest --org acme --year 2025 --theme GHG --pdf report.pdf
//	esgmatrix index --org acme --year 2025
//	esgmatrix run --doc-id acme_2025 --org acme --year 2025
//	esgmatrix eval
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esgscore/maturity/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "esgmatrix",
		Short:         "Deterministic, evidence-first ESG maturity scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newIngestCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newServeMCPCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "esgmatrix: %v\n", err)
		logger.Error(err.Error())
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a terminal error to the spec's documented exit codes
// (spec §6 "Exit codes"): 0 ok, 2 determinism, 3 parity, 4 evidence,
// 5 provenance, 6 cache miss in replay. Any other error is a generic
// startup/usage failure.
func exitCodeFor(err error) int {
	if c, ok := err.(interface{ ExitCode() int }); ok {
		return c.ExitCode()
	}
	return 1
}
