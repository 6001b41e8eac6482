package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Navigate handles the navigate MCP tool: reindexes if stale, then reports
// the call neighborhood of input.Function (spec §6, §4.7).
func (s *CodeIntelService) Navigate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NavigateInput,
) (*mcp.CallToolResult, NavigateOutput, error) {
	g, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, NavigateOutput{}, toolError(err)
	}

	depth := input.Depth
	if depth == 0 {
		depth = 1
	}

	result, qerr := s.newEngine(g).Navigate(input.Function, depth)
	if qerr != nil {
		return nil, NavigateOutput{}, toolError(qerr)
	}

	return nil, NavigateOutput{
		Function: result.Symbol.Name,
		Calls:    toWireRefs(result.Calls),
		CalledBy: toWireRefs(result.CalledBy),
		Siblings: toWireRefs(result.Siblings),
		Summary:  result.Summary,
	}, nil
}

// Find handles the find MCP tool: reindexes if stale, then scores every
// symbol against input.Query (spec §6, §4.7).
func (s *CodeIntelService) Find(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindInput,
) (*mcp.CallToolResult, FindOutput, error) {
	g, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, FindOutput{}, toolError(err)
	}

	result, qerr := s.newEngine(g).Find(input.Query, input.Scope)
	if qerr != nil {
		return nil, FindOutput{}, toolError(qerr)
	}

	return nil, FindOutput{
		Matches:       toWireRefs(result.Matches),
		GroupedByFile: toWireGrouped(result.GroupedByFile),
		Summary:       result.Summary,
	}, nil
}

// Impact handles the impact MCP tool: reindexes if stale, then computes the
// blast radius of input.Function (spec §6, §4.7).
func (s *CodeIntelService) Impact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ImpactInput,
) (*mcp.CallToolResult, ImpactOutput, error) {
	g, err := s.ensureFresh(ctx)
	if err != nil {
		return nil, ImpactOutput{}, toolError(err)
	}

	result, qerr := s.newEngine(g).Impact(input.Function, input.IncludeTests)
	if qerr != nil {
		return nil, ImpactOutput{}, toolError(qerr)
	}

	return nil, ImpactOutput{
		DirectCallers:    toWireRefs(result.DirectCallers),
		TransitiveImpact: toWireRefs(result.TransitiveImpact),
		AffectedFiles:    result.AffectedFiles,
		TestFiles:        result.TestFiles,
		RiskLevel:        result.RiskLevel,
		Summary:          result.Summary,
	}, nil
}
