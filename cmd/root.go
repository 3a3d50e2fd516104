package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/config"
	"github.com/jeddict/jeddict/internal/logging"
)

var (
	verbose       bool
	workspaceFlag string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "jeddict",
	Short: "jeddict is an AI pair programmer for Java and Go projects",
	Long: `jeddict is an AI pair programmer for Java and Go projects.
It runs inside any project folder and documents, fixes, enhances and tests
code, generates files and commit messages, and chats about the codebase
with read, search and edit tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.GlobalDir()
		if err != nil {
			dir = ""
		}
		l, err := logging.New(dir, verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// ExecuteContext runs the command line; ctx is cancelled on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug output to the log file")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Project directory (detected from the current directory by default)")
	addChatFlags(rootCmd)
}
