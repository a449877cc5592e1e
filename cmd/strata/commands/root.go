// ABOUTME: Root CLI command with global flags shared by all subcommands
// ABOUTME: Wires organize, retrieve, inspect, export, mcp and version
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strata",
		Short: "Organize text fragments into a navigable semantic hierarchy",
		Long: `strata: oracle-guided semantic clustering and retrieval

Organizes an unordered collection of text fragments into a multi-level
cluster tree using a completion service as its only intelligence
primitive, then answers queries by walking the tree from roots to
fragments with a full navigation trace.

Examples:
  strata cluster --input fragments.txt --out corpus
  strata retrieve --from corpus "how do I braise a short rib"
  strata inspect --from corpus`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewClusterCmd())
	cmd.AddCommand(NewRetrieveCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
