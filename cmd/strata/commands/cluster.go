// ABOUTME: CLI command to cluster fragments and build the tree
// ABOUTME: Reads fragments from a file or stdin and persists the result
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"strata/internal/config"
	"strata/internal/core"
	"strata/internal/llm"
	"strata/internal/models"
	"strata/internal/persist"
	"strata/internal/store"
)

var (
	clusterInput string
	clusterOut   string
	clusterMode  string
)

// NewClusterCmd creates the cluster command
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster fragments into a semantic hierarchy",
		Long: `Cluster text fragments into named groups and build a tree over them.

Fragments come from --input (one per line, or a JSON array of
{id, text, metadata} objects) or from stdin. The organized result is
persisted to --out in compact or split layout.

Examples:
  strata cluster --input notes.txt --out corpus
  cat notes.txt | strata cluster --out corpus
  strata cluster --input big.json --out corpus --mode split`,
		RunE: runCluster,
	}

	cmd.Flags().StringVar(&clusterInput, "input", "", "Read fragments from file (default: stdin)")
	cmd.Flags().StringVar(&clusterOut, "out", "", "Path to persist the organized result")
	cmd.Flags().StringVar(&clusterMode, "mode", "auto", "Persistence layout: auto, compact, split")

	return cmd
}

func runCluster(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	if clusterOut == "" {
		return fmt.Errorf("--out is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var fragments []models.Fragment
	if clusterInput != "" {
		f, err := os.Open(clusterInput)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		fragments, err = readFragments(f)
		if err != nil {
			return err
		}
	} else {
		fragments, err = readFragments(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}

	chunks, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening chunk store: %w", err)
	}
	defer chunks.Close()

	pipeline, err := core.NewPipeline(oracle, chunks, core.PipelineConfig{
		Clustering: cfg.ClusteringConfig(),
		Tree:       cfg.TreeConfig(),
		Retrieval:  cfg.RetrievalConfig(),
	})
	if err != nil {
		return err
	}

	result, err := pipeline.Organize(cmd.Context(), fragments)
	if err != nil {
		return fmt.Errorf("organizing fragments: %w", err)
	}

	if err := persist.Save(result, clusterOut, persist.SaveOptions{Mode: persist.Mode(clusterMode)}); err != nil {
		return fmt.Errorf("persisting result: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	if !quiet {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "LEVEL\tNAME\tCHUNKS\tID\n")
		for _, c := range result.Clusters {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.Level, truncate(c.Metadata.CanonicalName, 40), c.ChunkCount, c.ID)
		}
		w.Flush()
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d fragments into %d clusters (%d oracle calls), saved to %s\n",
			result.FragmentsProcessed, len(result.Clusters), result.OracleCalls, clusterOut)
	}
	return nil
}

// newOracle builds the OpenAI oracle from loaded configuration
func newOracle(cfg *config.Config) (llm.Oracle, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return llm.NewOpenAIOracleWithConfig(&llm.ClientConfig{
		APIKey:      cfg.OpenAIKey,
		ChatModel:   cfg.ChatModel,
		Temperature: float32(cfg.Temperature),
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Timeout:     cfg.Timeout,
	})
}
