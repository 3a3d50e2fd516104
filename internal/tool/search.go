package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeddict/jeddict/internal/indexer"
)

// SearchCodeArgs represents the arguments for the search_code tool.
type SearchCodeArgs struct {
	Query       string `json:"query"`
	FilePattern string `json:"file_pattern,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// SearchCodeResult represents the result of the search_code tool.
type SearchCodeResult struct {
	Matches   []indexer.RipgrepMatch `json:"matches"`
	Total     int                    `json:"total"`
	Truncated bool                   `json:"truncated,omitempty"`
	Query     string                 `json:"query"`
}

// RegisterSearchCode registers the search_code tool with the registry.
func RegisterSearchCode(registry *Registry, idx *indexer.RipgrepIndexer) error {
	return registry.Register(Definition{
		Name:        "search_code",
		Description: "Search the codebase for a case-insensitive regular expression",
		Safe:        true,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query or pattern to look for",
				},
				"file_pattern": map[string]any{
					"type":        "string",
					"description": "Optional glob pattern to filter files (e.g., '*.java', 'src/**/*.go')",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum number of results to return (default: %d)", indexer.DefaultMaxResults),
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args SearchCodeArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			result, err := idx.Search(ctx, args.Query, args.FilePattern, args.MaxResults)
			if err != nil {
				return nil, fmt.Errorf("search failed: %w", err)
			}
			return &SearchCodeResult{
				Matches:   result.Matches,
				Total:     len(result.Matches),
				Truncated: result.Truncated,
				Query:     args.Query,
			}, nil
		},
	})
}
