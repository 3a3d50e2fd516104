package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/config"
	"github.com/jeddict/jeddict/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize jeddict configuration for the current project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := detectWorkspace()
		if err != nil {
			return err
		}
		dir, err := workspace.EnsureDir(ws)
		if err != nil {
			return err
		}
		loader, err := config.Load(ws)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, config.FileName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			model, _ := loader.Get("model")
			if err := loader.Set("model", model, false); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized jeddict for %s\n", ws)
		fmt.Fprintf(cmd.OutOrStdout(), "Project settings: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
