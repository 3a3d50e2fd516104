package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/config"
)

var rulesGlobal bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rules added to every prompt",
	Long: `Add, remove, or list rules that will be included in AI prompts. Project
rules live in .jeddict/rules.json, user rules (--global) in ~/.jeddict.`,
}

var addRuleCmd = &cobra.Command{
	Use:   "add [rule-text]",
	Short: "Add a rule",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := detectWorkspace()
		if err != nil {
			return err
		}
		rule := strings.Join(args, " ")
		if err := config.AddRule(ws, rule, rulesGlobal); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule added: %s\n", rule)
		return nil
	},
}

var removeRuleCmd = &cobra.Command{
	Use:   "remove [rule-number]",
	Short: "Remove a rule by the number shown by list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := detectWorkspace()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule number %q", args[0])
		}
		removed, err := config.RemoveRule(ws, n, rulesGlobal)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule removed: %s\n", removed)
		return nil
	},
}

var listRulesCmd = &cobra.Command{
	Use:   "list",
	Short: "List user and project rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := detectWorkspace()
		if err != nil {
			return err
		}
		user, project, err := config.LoadRules(ws)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printRules := func(title string, rules []string) {
			fmt.Fprintf(out, "%s:\n", title)
			if len(rules) == 0 {
				fmt.Fprintln(out, "  (none)")
				return
			}
			for i, r := range rules {
				fmt.Fprintf(out, "  %d. %s\n", i+1, r)
			}
		}
		printRules("User rules", user)
		printRules("Project rules", project)
		return nil
	},
}

func init() {
	rulesCmd.PersistentFlags().BoolVarP(&rulesGlobal, "global", "g", false, "Use the user rules instead of the project rules")
	rulesCmd.AddCommand(addRuleCmd, removeRuleCmd, listRulesCmd)
	rootCmd.AddCommand(rulesCmd)
}
