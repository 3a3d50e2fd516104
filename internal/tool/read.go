package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/scanner"
)

// MaxReadSize bounds the files read_file returns whole.
const MaxReadSize = 512 * 1024

// ReadFileArgs represents the arguments for the read_file tool.
type ReadFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	// IncludeLineNumbers defaults to true.
	IncludeLineNumbers *bool `json:"include_line_numbers,omitempty"`
}

// ReadFileResult represents the result of the read_file tool.
type ReadFileResult struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Lines    int    `json:"lines"`
	Path     string `json:"path"`
}

// RegisterReadFile registers the read_file tool with the registry.
func RegisterReadFile(registry *Registry, workspacePath string) error {
	return registry.Register(Definition{
		Name:        "read_file",
		Description: "Reads the content of a file in the workspace",
		Safe:        true,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file, relative to the workspace root",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "Line offset to start reading from (0-indexed)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of lines to read",
				},
				"include_line_numbers": map[string]any{
					"type":        "boolean",
					"description": "Whether to prefix line numbers to each line in the response (default true)",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ReadFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			return readFile(workspacePath, args)
		},
	})
}

func readFile(workspacePath string, args ReadFileArgs) (*ReadFileResult, error) {
	if strings.TrimSpace(args.Path) == "" {
		return nil, errors.New("path is required")
	}
	path, err := editor.ResolvePath(workspacePath, args.Path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("file not found: %s", args.Path)
	case err != nil:
		return nil, fmt.Errorf("failed to access file: %w", err)
	case info.IsDir():
		return nil, fmt.Errorf("%s is a directory, use list_dir", args.Path)
	case info.Size() > MaxReadSize && args.Limit <= 0:
		return nil, fmt.Errorf("file is %d bytes, read it in parts with offset and limit", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	all := strings.Split(string(data), "\n")
	first, last, err := window(len(all), args.Offset, args.Limit)
	if err != nil {
		return nil, err
	}

	selected := all[first:last]
	if args.IncludeLineNumbers == nil || *args.IncludeLineNumbers {
		numbered := make([]string, len(selected))
		for i, line := range selected {
			numbered[i] = fmt.Sprintf("L%d: %s", first+i+1, line)
		}
		selected = numbered
	}

	return &ReadFileResult{
		Content:  strings.Join(selected, "\n"),
		Language: detectLanguage(path),
		Lines:    len(all),
		Path:     args.Path,
	}, nil
}

// window clamps a 0-based offset and a line limit to [first, last).
func window(total, offset, limit int) (first, last int, err error) {
	if offset < 0 {
		offset = 0
	}
	if offset > 0 && offset >= total {
		return 0, 0, fmt.Errorf("offset %d is beyond the file length (%d lines)", offset, total)
	}
	last = total
	if limit > 0 && offset+limit < total {
		last = offset + limit
	}
	return offset, last, nil
}

func detectLanguage(path string) string {
	switch scanner.LanguageOf(path) {
	case scanner.Java:
		return "java"
	case scanner.Go:
		return "go"
	}
	switch {
	case strings.HasSuffix(path, ".xml"), strings.HasSuffix(path, ".pom"):
		return "xml"
	case strings.HasSuffix(path, ".gradle"), strings.HasSuffix(path, ".kts"):
		return "gradle"
	case strings.HasSuffix(path, ".properties"):
		return "properties"
	case strings.HasSuffix(path, ".md"):
		return "markdown"
	case strings.HasSuffix(path, ".json"):
		return "json"
	case strings.HasSuffix(path, ".yml"), strings.HasSuffix(path, ".yaml"):
		return "yaml"
	case strings.HasSuffix(path, ".sql"):
		return "sql"
	default:
		return "text"
	}
}
