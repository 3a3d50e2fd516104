package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/scanner"
)

// ClassSkeletonArgs selects a source file by path or a type by name.
type ClassSkeletonArgs struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
}

// RegisterClassSkeleton registers class_skeleton, which returns the public
// outline of a Java or Go source file without method bodies.
func RegisterClassSkeleton(registry *Registry, project *scanner.Project) error {
	return registry.Register(Definition{
		Name:        "class_skeleton",
		Description: "Show the public outline of a Java or Go source file (signatures without bodies) and the types it references. Pass either a path or a type name.",
		Safe:        true,
		JSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Source file relative to the workspace root",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Simple or qualified type name, e.g. OrderService",
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ClassSkeletonArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			return classSkeleton(project, args)
		},
	})
}

func classSkeleton(project *scanner.Project, args ClassSkeletonArgs) (string, error) {
	var found []*scanner.ClassData
	switch {
	case args.Path != "":
		abs, err := editor.ResolvePath(project.Root(), args.Path)
		if err != nil {
			return "", err
		}
		data, err := project.Get(abs)
		if err != nil {
			return "", err
		}
		found = append(found, data)
	case args.Name != "":
		found = project.Lookup(args.Name)
		if len(found) == 0 {
			return "", fmt.Errorf("no type named %s in the workspace", args.Name)
		}
	default:
		return "", errors.New("either path or name is required")
	}

	var b strings.Builder
	for i, data := range found {
		if i > 0 {
			b.WriteString("\n")
		}
		rel, err := filepath.Rel(project.Root(), data.Path)
		if err != nil {
			rel = data.Path
		}
		fmt.Fprintf(&b, "// %s\n%s", filepath.ToSlash(rel), data.Skeleton)
		if !strings.HasSuffix(data.Skeleton, "\n") {
			b.WriteString("\n")
		}
		if len(data.Referenced) > 0 {
			fmt.Fprintf(&b, "// references: %s\n", strings.Join(data.Referenced, ", "))
		}
	}
	return b.String(), nil
}
