// ABOUTME: MCP tool handler implementations for the strata server
// ABOUTME: Holds the current clustering result and persists it between calls
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"strata/internal/core"
	"strata/internal/models"
	"strata/internal/persist"
)

// Handlers contains the handler functions for all MCP tools. The mutex
// serializes sessions: within one organize or retrieve call everything is
// strictly sequential.
type Handlers struct {
	pipeline   *core.Pipeline
	resultPath string

	mu     sync.Mutex
	result *models.ClusteringResult
}

// OrganizeFragments handles the organize_fragments tool
func (h *Handlers) OrganizeFragments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Type assert Arguments to map for array access
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("fragments argument is required and must be an array of strings"), nil
	}
	texts := extractStringArray(args, "fragments")
	if len(texts) == 0 {
		return mcp.NewToolResultError("fragments must not be empty"), nil
	}

	fragments := make([]models.Fragment, len(texts))
	for i, text := range texts {
		fragments[i] = models.Fragment{ID: int64(i), Text: text}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.pipeline.Organize(ctx, fragments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("organize failed: %v", err)), nil
	}
	h.result = result

	if h.resultPath != "" {
		if err := persist.Save(result, h.resultPath, persist.SaveOptions{}); err != nil {
			log.Printf("Warning: failed to persist result: %v", err)
		}
	}

	summary := map[string]interface{}{
		"clusters":            len(result.Clusters),
		"fragments_processed": result.FragmentsProcessed,
		"oracle_calls":        result.OracleCalls,
	}
	if result.Tree != nil {
		summary["max_depth"] = result.Tree.MaxDepth
		summary["root_clusters"] = len(result.Tree.RootClusterIDs)
	}
	return jsonResult(summary)
}

// RetrieveFragments handles the retrieve_fragments tool
func (h *Handlers) RetrieveFragments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureResult(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	retrieval, err := h.pipeline.Retrieve(ctx, h.result, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieve failed: %v", err)), nil
	}
	return jsonResult(retrieval)
}

// ListClusters handles the list_clusters tool
func (h *Handlers) ListClusters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureResult(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type clusterView struct {
		ID         string `json:"id"`
		Level      int    `json:"level"`
		Name       string `json:"name"`
		ChunkCount int    `json:"chunk_count"`
		ParentID   string `json:"parent_id,omitempty"`
	}

	views := make([]clusterView, 0, len(h.result.Clusters))
	clusters := h.result.Clusters
	if h.result.Tree != nil {
		clusters = nil
		for _, level := range h.result.Tree.Levels() {
			clusters = append(clusters, h.result.Tree.ClustersAtLevel(level)...)
		}
	}
	for _, c := range clusters {
		views = append(views, clusterView{
			ID:         c.ID,
			Level:      c.Level,
			Name:       c.Metadata.CanonicalName,
			ChunkCount: c.ChunkCount,
			ParentID:   c.ParentID,
		})
	}
	return jsonResult(views)
}

// ensureResult loads the persisted result when no in-memory one exists
func (h *Handlers) ensureResult() error {
	if h.result != nil {
		return nil
	}
	if h.resultPath == "" {
		return fmt.Errorf("no organized result available; call organize_fragments first")
	}
	result, chunks, err := persist.Load(h.resultPath, false)
	if err != nil {
		return fmt.Errorf("no organized result available: %v", err)
	}
	if chunks != nil {
		_ = chunks.Close()
	}
	h.result = result
	return nil
}

// extractStringArray extracts a string array from the raw arguments map
func extractStringArray(args map[string]any, key string) []string {
	val, ok := args[key]
	if !ok {
		return []string{}
	}
	arr, ok := val.([]interface{})
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}
	return result
}

// jsonResult marshals a value into an MCP text result
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
