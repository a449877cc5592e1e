// ABOUTME: CLI command to retrieve fragments for a query
// ABOUTME: Walks the persisted tree and prints results plus the navigation trace
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"strata/internal/config"
	"strata/internal/core"
	"strata/internal/models"
	"strata/internal/persist"
)

var (
	retrieveFrom string
	retrieveTopK int
	retrieveLazy bool
)

// NewRetrieveCmd creates the retrieve command
func NewRetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Retrieve the fragments most relevant to a query",
		Long: `Retrieve fragments by walking the cluster tree from its roots.

Loads a previously organized result, descends level by level guided by
the oracle, then ranks the chosen leaf's fragments. The navigation
trace explains every decision, including a failed descent.

Examples:
  strata retrieve --from corpus "how do I braise a short rib"
  strata retrieve --from corpus --top-k 3 --format json "tax deadlines"`,
		Args: cobra.ExactArgs(1),
		RunE: runRetrieve,
	}

	cmd.Flags().StringVar(&retrieveFrom, "from", "", "Path of the persisted result")
	cmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "Number of fragments to return (default from config)")
	cmd.Flags().BoolVar(&retrieveLazy, "lazy", false, "Keep fragments in the chunk store instead of loading them all")

	return cmd
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	if retrieveFrom == "" {
		return fmt.Errorf("--from is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if retrieveTopK != 0 {
		if err := validatePositiveInt(retrieveTopK, "top-k"); err != nil {
			return err
		}
		cfg.TopK = retrieveTopK
	}

	query := args[0]

	result, chunks, err := persist.Load(retrieveFrom, retrieveLazy)
	if err != nil {
		return fmt.Errorf("loading result: %w", err)
	}
	if chunks != nil {
		defer chunks.Close()
	}
	if result.Tree == nil {
		return fmt.Errorf("persisted result has no tree; re-run strata cluster")
	}

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}

	retriever, err := core.NewRetriever(oracle, chunks, cfg.RetrievalConfig())
	if err != nil {
		return err
	}

	retrieval, err := retriever.Retrieve(cmd.Context(), result.Tree, query)
	if err != nil {
		return fmt.Errorf("retrieving: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(retrieval, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	printRetrieval(cmd, retrieval)
	return nil
}

func printRetrieval(cmd *cobra.Command, retrieval *models.RetrievalResult) {
	out := cmd.OutOrStdout()

	if len(retrieval.Results) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No fragments found for query: %s\n", retrieval.Query)
		}
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "CONF\tID\tTEXT\n")
		for _, r := range retrieval.Results {
			fmt.Fprintf(w, "%.2f\t%d\t%s\n", r.Confidence, r.FragmentID, truncate(r.Text, 70))
		}
		w.Flush()
	}

	if verbose {
		fmt.Fprintf(out, "\nNavigation trace:\n")
		for i, step := range retrieval.Trace {
			name := step.ChosenClusterName
			if name == "" {
				name = "(halted)"
			}
			fmt.Fprintf(out, "  %d. level %d -> %s (%.2f) %s\n", i+1, step.Level, name, step.Confidence, truncate(step.Reasoning, 60))
		}
		fmt.Fprintf(out, "\n%d oracle calls, %d clusters explored, %s elapsed\n",
			retrieval.Stats.OracleCalls, retrieval.Stats.ClustersExplored, retrieval.Stats.Elapsed)
	}
}
