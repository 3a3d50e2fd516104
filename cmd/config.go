package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/config"
)

var configGlobal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jeddict configuration",
	Long:  `Get and set configuration values for jeddict`,
}

func loadConfig() (*config.Loader, error) {
	ws, err := detectWorkspace()
	if err != nil {
		return nil, fmt.Errorf("detect workspace: %w", err)
	}
	return config.Load(ws)
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := loadConfig()
		if err != nil {
			return err
		}
		value, err := loader.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := loadConfig()
		if err != nil {
			return err
		}
		if err := loader.Set(args[0], args[1], configGlobal); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := loadConfig()
		if err != nil {
			return err
		}
		values := loader.List()
		for _, key := range config.Keys() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s = %s\n", key, values[key])
		}
		return nil
	},
}

func init() {
	configSetCmd.Flags().BoolVarP(&configGlobal, "global", "g", false, "Write to ~/.jeddict/config.toml instead of the project")
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
