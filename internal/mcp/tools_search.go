package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultSearchLimit = 5

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"Regular expression or substring matched against tool names, descriptions and keywords"`
	Category string `json:"category,omitempty" jsonschema:"Only search this category: compression, reference or search"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 5)"`
}

type toolSearchOutput struct {
	Query      string          `json:"query" jsonschema:"Search query used"`
	Results    []*SearchResult `json:"results" jsonschema:"Matching tools ordered by score"`
	Count      int             `json:"count" jsonschema:"Number of tools found"`
	TotalTools int             `json:"total_tools" jsonschema:"Total number of tools in the registry"`
}

type toolListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list this category"`
}

type toolListOutput struct {
	Tools []*ToolMetadata `json:"tools" jsonschema:"Registered tools sorted by name"`
	Count int             `json:"count" jsonschema:"Number of tools returned"`
}

func (s *Server) registerSearchTools() error {
	err := addTool(s, &ToolMetadata{
		Name:        "tool_search",
		Description: "Search the available tools by name, description or keyword.",
		Category:    CategorySearch,
		Keywords:    []string{"discover", "find"},
	}, s.toolSearch)
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "tool_list",
		Description: "List the available tools with their metadata.",
		Category:    CategorySearch,
		Keywords:    []string{"discover"},
	}, s.toolList)
}

func (s *Server) toolSearch(_ context.Context, _ *mcp.CallToolRequest, args toolSearchInput) (*mcp.CallToolResult, toolSearchOutput, error) {
	if args.Query == "" {
		return nil, toolSearchOutput{}, fmt.Errorf("query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var results []*SearchResult
	if args.Category != "" {
		results = s.toolRegistry.SearchByCategory(args.Query, ToolCategory(args.Category))
	} else {
		results = s.toolRegistry.Search(args.Query)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	output := toolSearchOutput{
		Query:      args.Query,
		Results:    append([]*SearchResult{}, results...),
		Count:      len(results),
		TotalTools: s.toolRegistry.Count(),
	}
	if output.Count == 0 {
		return textResult("No tools found matching: %s", args.Query), output, nil
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Tool.Name)
	}
	return textResult("Found %d tool(s) for query '%s': %s", output.Count, args.Query, strings.Join(names, ", ")), output, nil
}

func (s *Server) toolList(_ context.Context, _ *mcp.CallToolRequest, args toolListInput) (*mcp.CallToolResult, toolListOutput, error) {
	tools := s.toolRegistry.List()
	if args.Category != "" {
		tools = s.toolRegistry.ListByCategory(ToolCategory(args.Category))
	}
	output := toolListOutput{Tools: append([]*ToolMetadata{}, tools...), Count: len(tools)}
	return textResult("Found %d tools", output.Count), output, nil
}
