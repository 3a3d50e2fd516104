package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/history"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved chat and test sessions",
	Long:  `List saved sessions that can be continued with --session`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspaceHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.List(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			fmt.Fprintln(out, "Start a new session with: jeddict chat")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(out, "%s  %-4s  %s  %3d msgs  %6d tokens  %s\n",
				s.ID[:8], s.Kind, s.UpdatedAt.Local().Format("2006-01-02 15:04"),
				s.Messages, s.InputTokens+s.OutputTokens, s.Title)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspaceHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msgs, err := store.Messages(cmd.Context(), s.ID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s, %s)\n\n", s.Title, s.Kind, s.Model)
		for _, m := range msgs {
			switch {
			case len(m.ToolCalls) > 0:
				for _, c := range m.ToolCalls {
					fmt.Fprintf(out, "[%s] %s %s\n", m.Role, c.Name, c.Arguments)
				}
			case m.Content != "":
				fmt.Fprintf(out, "[%s]\n%s\n\n", m.Role, m.Content)
			}
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := workspaceHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), s.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", s.ID)
		return nil
	},
}

func workspaceHistory() (*history.Store, error) {
	ws, err := detectWorkspace()
	if err != nil {
		return nil, err
	}
	return openHistory(ws)
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Number of sessions to list")
	sessionsCmd.AddCommand(sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
