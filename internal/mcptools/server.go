package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeGraphMCPServer creates an MCP server with the 3 code intelligence
// tools registered (spec §6): navigate, find, impact.
func NewCodeGraphMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "navigate",
		Description: "Report the call neighborhood of a symbol: what it calls, what calls it, and its siblings in the same file.",
	}, svc.Navigate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find",
		Description: "Search for symbols by name across the project, scored by exact, substring, then fuzzy match, optionally scoped to a file prefix.",
	}, svc.Find)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "impact",
		Description: "Compute the blast radius of changing a symbol: direct and transitive callers, affected files, and a risk tier.",
	}, svc.Impact)

	return server
}

// RunCodeGraphMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled (spec §6: "served over a
// JSON-RPC stdio protocol").
func RunCodeGraphMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
