package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeddict/jeddict/internal/vcs"
)

// GitDiffArgs represents the arguments for git_diff.
type GitDiffArgs struct {
	Staged bool `json:"staged,omitempty"`
}

// RegisterGitTools registers git_status and git_diff for the repository.
func RegisterGitTools(registry *Registry, repo *vcs.Repository) error {
	err := registry.Register(Definition{
		Name:        "git_status",
		Description: "Show the current branch and the changed files of the git repository",
		Safe:        true,
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			st, err := repo.Status()
			if err != nil {
				return nil, err
			}
			return st.FormatStatus(), nil
		},
	})
	if err != nil {
		return err
	}

	return registry.Register(Definition{
		Name:        "git_diff",
		Description: "Show a unified diff of the working tree changes, or of the staged changes",
		Safe:        true,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"staged": map[string]any{
					"type":        "boolean",
					"description": "Diff the index against HEAD instead of the working tree against the index",
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args GitDiffArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			diff, err := repo.Diff(args.Staged)
			if err != nil {
				return nil, err
			}
			if diff == "" {
				return "No changes.", nil
			}
			return truncate(diff, maxOutput), nil
		},
	})
}
