package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/config"
	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/scanner"
)

func loadProject() (*scanner.Project, error) {
	ws, err := detectWorkspace()
	if err != nil {
		return nil, err
	}
	loader, err := config.Load(ws)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Config()
	if err != nil {
		return nil, err
	}
	return scanner.NewProject(ws, scanner.WithLogger(logger), scanner.WithMaxFileSize(cfg.MaxFileSize))
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the workspace and summarize its types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s\n", p.Root())
		start := time.Now()
		if err := p.Scan(cmd.Context()); err != nil {
			return err
		}

		langs := map[scanner.Language]int{}
		types := 0
		for _, f := range p.Files() {
			cd, err := p.Get(f)
			if err != nil {
				continue
			}
			langs[cd.Language]++
			types += len(cd.Types)
		}
		names := make([]string, 0, len(langs))
		for l := range langs {
			names = append(names, string(l))
		}
		sort.Strings(names)

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files declaring %d types in %v\n", len(p.Files()), types, time.Since(start).Round(time.Millisecond))
		for _, n := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-6s %d files\n", n, langs[scanner.Language(n)])
		}
		return nil
	},
}

var skeletonCmd = &cobra.Command{
	Use:   "skeleton <file|type>",
	Short: "Print the signature skeleton of a file or type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		target := args[0]
		var cd *scanner.ClassData
		if abs, ok := existingFile(p.Root(), target); ok {
			cd, err = p.Get(abs)
		} else {
			if err := p.Scan(cmd.Context()); err != nil {
				return err
			}
			found := p.Lookup(target)
			switch len(found) {
			case 0:
				return fmt.Errorf("no type %q in the workspace", target)
			case 1:
				cd = found[0]
			default:
				paths := make([]string, len(found))
				for i, f := range found {
					paths[i] = f.Path
				}
				return fmt.Errorf("type %q is declared in several files: %s", target, strings.Join(paths, ", "))
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cd.Skeleton)
		if len(cd.Referenced) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "// references: %s\n", strings.Join(cd.Referenced, ", "))
		}
		return nil
	},
}

func existingFile(root, path string) (string, bool) {
	abs, err := editor.ResolvePath(root, path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	return abs, err == nil && !info.IsDir()
}

func init() {
	rootCmd.AddCommand(indexCmd, skeletonCmd)
}
