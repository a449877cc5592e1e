// ABOUTME: MCP command starts a Model Context Protocol server over stdio
// ABOUTME: Exposes organize, retrieve and inspection tools to LLM agents
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"strata/internal/config"
	"strata/internal/core"
	"strata/internal/mcp"
	"strata/internal/store"
)

var mcpResultPath string

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs strata as an MCP (Model Context Protocol) server over stdio,
exposing fragment organization and tree-guided retrieval as tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by an agent host)
  strata mcp --result corpus

  # Configure in an MCP client config:
  # {
  #   "mcpServers": {
  #     "strata": {
  #       "command": "strata",
  #       "args": ["mcp", "--result", "corpus"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().StringVar(&mcpResultPath, "result", "strata-result", "Base path for persisting organized results")

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}

	chunks, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening chunk store: %w", err)
	}

	pipeline, err := core.NewPipeline(oracle, chunks, core.PipelineConfig{
		Clustering: cfg.ClusteringConfig(),
		Tree:       cfg.TreeConfig(),
		Retrieval:  cfg.RetrievalConfig(),
	})
	if err != nil {
		chunks.Close()
		return fmt.Errorf("creating pipeline: %w", err)
	}

	server := mcpserver.NewMCPServer(
		"strata",
		versionInfo.Version,
	)

	mcp.RegisterTools(server, pipeline, mcpResultPath)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("strata MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}

		if err := chunks.Close(); err != nil {
			log.Printf("Warning: Error closing chunk store: %v", err)
		}

		if !quiet {
			log.Println("Shutdown complete")
		}

	case err := <-serverErr:
		if err != nil {
			chunks.Close()
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
