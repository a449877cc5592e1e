// ABOUTME: CLI command to export a persisted result as YAML
// ABOUTME: A human-readable report; not a round-trippable format
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strata/internal/persist"
)

var (
	exportFrom string
	exportOut  string
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a persisted result as YAML",
		Long: `Export an organized result as a human-readable YAML report.

Examples:
  strata export --from corpus
  strata export --from corpus --out corpus.yaml`,
		RunE: runExport,
	}

	cmd.Flags().StringVar(&exportFrom, "from", "", "Path of the persisted result")
	cmd.Flags().StringVar(&exportOut, "out", "", "Write to file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFrom == "" {
		return fmt.Errorf("--from is required")
	}

	result, chunks, err := persist.Load(exportFrom, true)
	if err != nil {
		return fmt.Errorf("loading result: %w", err)
	}
	if chunks != nil {
		defer chunks.Close()
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := persist.ExportYAML(result, out); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	if exportOut != "" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportOut)
	}
	return nil
}
