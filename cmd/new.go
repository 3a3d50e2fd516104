package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/editor"
)

var newCmd = &cobra.Command{
	Use:   "new <file> <description>",
	Short: "Generate a new source file from a description",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		path := args[0]
		description, err := argsText(cmd, args[1:])
		if err != nil {
			return err
		}

		resp, err := a.brain.FileWizard().StreamFile(ctx, brain.FileRequest{
			Path:    path,
			Prompt:  description,
			Context: siblingContext(ctx, a, path),
		}, listener(cmd))
		if err != nil {
			return err
		}

		plan, err := editor.ProposeCreate(a.workspace, path, editor.ExtractCode(resp.Text()))
		if err != nil {
			return err
		}
		applied, err := a.propose(ctx, plan)
		if err != nil {
			return err
		}
		if applied {
			fmt.Fprintln(cmd.OutOrStdout(), "Created", path)
		}
		return nil
	},
}

// siblingContext returns the skeletons of the scanned files in the same
// directory as path, so the new file can follow their conventions.
func siblingContext(ctx context.Context, a *app, path string) string {
	abs, err := editor.ResolvePath(a.workspace, path)
	if err != nil {
		return ""
	}
	if err := a.project.Scan(ctx); err != nil {
		return ""
	}
	dir := filepath.Dir(abs)
	var parts []string
	for _, f := range a.project.Files() {
		if filepath.Dir(f) != dir {
			continue
		}
		if cd, err := a.project.Get(f); err == nil {
			parts = append(parts, strings.TrimRight(cd.Skeleton, "\n"))
		}
		if len(parts) == 5 {
			break
		}
	}
	return strings.Join(parts, "\n\n")
}

func init() {
	rootCmd.AddCommand(newCmd)
}
