package main

import (
	"fmt"

	"expboard/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect board descriptions",
}

var configCheckCmd = &cobra.Command{
	Use:   "check <board.yaml>",
	Short: "Load and validate a board description",
	Long:  `Loads the file, applies defaults, validates it and prints the effective configuration.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cfg.Summary())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
