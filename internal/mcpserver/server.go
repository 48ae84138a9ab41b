// Package mcpserver exposes the top-K query as an MCP tool.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/query"
)

const ToolTop = "insurance_top"

// TopInput is the argument object of the insurance_top tool.
type TopInput struct {
	MaxCount int `json:"maxCount" jsonschema:"how many results to return, at least 1"`
	MaxDepth int `json:"maxDepth" jsonschema:"number of tree levels folded into each value, at least 1 (1 means the node alone)"`
}

// TopOutput is the structured result of the insurance_top tool.
type TopOutput struct {
	Results []engine.Result `json:"results" jsonschema:"aggregated values, highest first, ties by ascending id"`
}

// New builds an MCP server backed by svc.
func New(svc *query.Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "insurtree", Version: version}, &mcp.ServerOptions{
		Instructions: "Ranks insurances by their value combined with descendants down to a depth limit.",
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolTop,
		Description: "Top insurances by combined value with depth restraint",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in TopInput) (*mcp.CallToolResult, TopOutput, error) {
		results, err := svc.Top(ctx, in.MaxCount, in.MaxDepth)
		if err != nil {
			return nil, TopOutput{}, err
		}
		return nil, TopOutput{Results: results}, nil
	})

	return server
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}
