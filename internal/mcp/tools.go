// ABOUTME: MCP tool definitions and registration for the strata server
// ABOUTME: Exposes organize, retrieve and inspection tools over stdio
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"strata/internal/core"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, pipeline *core.Pipeline, resultPath string) *Handlers {
	handlers := &Handlers{
		pipeline:   pipeline,
		resultPath: resultPath,
	}

	server.AddTool(mcp.Tool{
		Name:        "organize_fragments",
		Description: "Cluster a list of text fragments into a navigable semantic hierarchy and persist the result.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fragments": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Text fragments to organize, one string each",
				},
			},
			Required: []string{"fragments"},
		},
	}, handlers.OrganizeFragments)

	server.AddTool(mcp.Tool{
		Name:        "retrieve_fragments",
		Description: "Walk the cluster tree to find the fragments most relevant to a query, with a full navigation trace.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query to retrieve fragments for",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.RetrieveFragments)

	server.AddTool(mcp.Tool{
		Name:        "list_clusters",
		Description: "List the clusters of the current hierarchy with level, name and fragment counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListClusters)

	return handlers
}
