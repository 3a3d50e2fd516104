package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeddict/jeddict/internal/editor"
)

// EditFileArgs represents the arguments for the edit_file tool.
type EditFileArgs struct {
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// CreateFileArgs represents the arguments for the create_file tool.
type CreateFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// EditFileResult is reported to the model once a change was applied.
type EditFileResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChangeHook is told about every file an applied edit touched.
type ChangeHook func(path string)

// RegisterEditFile registers edit_file, a search and replace on one file.
func RegisterEditFile(registry *Registry, workspacePath string, onChange ChangeHook) error {
	return registry.Register(Definition{
		Name:        "edit_file",
		Description: "Edit a file by replacing exactly one occurrence of old_string with new_string. The user must approve the change.",
		Safe:        false,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file, relative to the workspace root",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "The text to replace, including enough context to be unique in the file",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "The replacement text",
				},
			},
			"required": []string{"path", "old_string", "new_string"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args EditFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			plan, err := editor.ProposeEdit(workspacePath, args.Path, args.OldString, args.NewString)
			if err != nil {
				return nil, err
			}
			return planProposal("edit_file", args.Path, plan, onChange), nil
		},
	})
}

// RegisterCreateFile registers create_file, which refuses to overwrite.
func RegisterCreateFile(registry *Registry, workspacePath string, onChange ChangeHook) error {
	return registry.Register(Definition{
		Name:        "create_file",
		Description: "Create a new file with the given content. Fails if the file exists. The user must approve the change.",
		Safe:        false,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the new file, relative to the workspace root",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full content of the file",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args CreateFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			plan, err := editor.ProposeCreate(workspacePath, args.Path, args.Content)
			if err != nil {
				return nil, err
			}
			return planProposal("create_file", args.Path, plan, onChange), nil
		},
	})
}

// planProposal defers applying plan until the approver accepts it.
func planProposal(tool, path string, plan *editor.EditPlan, onChange ChangeHook) *Proposal {
	return &Proposal{
		Tool:    tool,
		Summary: plan.Summary(),
		Diff:    plan.Diff,
		Apply: func(ctx context.Context) (any, error) {
			if err := editor.ApplyEdit(plan); err != nil {
				return nil, err
			}
			if onChange != nil {
				onChange(plan.FilePath)
			}
			return &EditFileResult{Path: path, Success: true, Message: plan.Summary()}, nil
		},
	}
}
