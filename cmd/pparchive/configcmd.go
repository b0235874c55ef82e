package main

import (
	"github.com/spf13/cobra"

	"pparchive/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter.Print(cfg)
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := config.Default()
		defaults.Root = globalFlags.Root
		if err := cfgManager.Init(defaults, configInitForce); err != nil {
			return err
		}
		return formatter.Print(cfgManager.Path())
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "replace an existing file, keeping a backup")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
