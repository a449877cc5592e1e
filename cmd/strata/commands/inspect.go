// ABOUTME: CLI command to inspect a persisted cluster hierarchy
// ABOUTME: Prints per-level cluster tables and aggregate tree statistics
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"strata/internal/persist"
)

var inspectFrom string

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a persisted cluster hierarchy",
		Long: `Inspect the structure of a previously organized result.

Shows each level of the tree with cluster names, tags and chunk
counts, plus aggregate statistics.

Examples:
  strata inspect --from corpus
  strata inspect --from corpus --format json`,
		RunE: runInspect,
	}

	cmd.Flags().StringVar(&inspectFrom, "from", "", "Path of the persisted result")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectFrom == "" {
		return fmt.Errorf("--from is required")
	}

	result, chunks, err := persist.Load(inspectFrom, true)
	if err != nil {
		return fmt.Errorf("loading result: %w", err)
	}
	if chunks != nil {
		defer chunks.Close()
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	out := cmd.OutOrStdout()
	tree := result.Tree
	if tree == nil {
		fmt.Fprintf(out, "%d flat clusters, no tree attached\n", len(result.Clusters))
		return nil
	}

	levels := tree.Levels()
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		fmt.Fprintf(out, "Level %d:\n", level)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  NAME\tCHUNKS\tCHILDREN\tTAGS\n")
		for _, c := range tree.ClustersAtLevel(level) {
			fmt.Fprintf(w, "  %s\t%d\t%d\t%s\n",
				truncate(c.Metadata.CanonicalName, 40), c.ChunkCount,
				len(c.ChildClusterIDs), truncate(strings.Join(c.Metadata.Tags, ","), 40))
		}
		w.Flush()
	}

	fmt.Fprintf(out, "\n%d clusters, %d chunks, max depth %d, %d roots\n",
		tree.TotalClusters, tree.TotalChunks, tree.MaxDepth, len(tree.RootClusterIDs))
	return nil
}
