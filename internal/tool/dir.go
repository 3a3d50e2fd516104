package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jeddict/jeddict/internal/editor"
)

// maxDirEntries bounds a single listing.
const maxDirEntries = 500

// ListDirArgs represents the arguments for the list_dir tool.
type ListDirArgs struct {
	Path string `json:"path"`
}

// ListDirResult represents the result of the list_dir tool.
type ListDirResult struct {
	Path      string     `json:"path"`
	Entries   []DirEntry `json:"entries"`
	IsDir     bool       `json:"is_dir"`
	Truncated bool       `json:"truncated,omitempty"`
}

// DirEntry represents a single entry in a directory.
type DirEntry struct {
	Name    string `json:"name"`
	IsDir   bool   `json:"is_dir"`
	Size    int64  `json:"size,omitempty"`
	ModTime string `json:"mod_time,omitempty"`
}

// RegisterListDir registers the list_dir tool with the registry.
func RegisterListDir(registry *Registry, workspacePath string) error {
	return registry.Register(Definition{
		Name:        "list_dir",
		Description: "List the contents of a directory in the workspace",
		Safe:        true,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the directory, relative to the workspace root (default: the root)",
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ListDirArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			if args.Path == "" {
				args.Path = "."
			}
			return listDir(workspacePath, args)
		},
	})
}

func listDir(workspacePath string, args ListDirArgs) (*ListDirResult, error) {
	absPath, err := editor.ResolvePath(workspacePath, args.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return &ListDirResult{
			Path:    args.Path,
			Entries: []DirEntry{{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime().Format(time.RFC3339)}},
		}, nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := &ListDirResult{Path: args.Path, IsDir: true, Entries: make([]DirEntry, 0, len(entries))}
	for _, entry := range entries {
		// hidden entries include .git and .jeddict
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		e := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if fi, err := entry.Info(); err == nil && !entry.IsDir() {
			e.Size = fi.Size()
			e.ModTime = fi.ModTime().Format(time.RFC3339)
		}
		result.Entries = append(result.Entries, e)
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	if len(result.Entries) > maxDirEntries {
		result.Entries = result.Entries[:maxDirEntries]
		result.Truncated = true
	}
	return result, nil
}
