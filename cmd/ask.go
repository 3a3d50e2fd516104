package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/brain"
)

var askFile string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question, optionally about a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question, err := argsText(cmd, args)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		var src brain.Source
		if askFile != "" {
			if src, _, err = a.source(askFile, "", 0); err != nil {
				return err
			}
		}
		assistant := a.brain.Assistant()
		if a.cfg.Stream {
			_, err = assistant.AskStream(cmd.Context(), question, src, listener(cmd))
			return err
		}
		answer, err := assistant.Ask(cmd.Context(), question, src)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "File the question is about")
	rootCmd.AddCommand(askCmd)
}
