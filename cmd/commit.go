package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Write a commit message for the staged changes",
	Long: `Write a commit message for the staged changes, or for every working tree
change when nothing is staged. The message is printed, not committed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		if a.repo == nil {
			return errors.New("not a git repository")
		}
		diff, err := a.repo.ChangesDiff()
		if err != nil {
			return err
		}
		if strings.TrimSpace(diff) == "" {
			return errors.New("nothing to commit")
		}
		branch, _ := a.repo.Branch()
		msg, err := a.brain.Assistant().GenerateCommitMessage(cmd.Context(), branch, diff)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}
