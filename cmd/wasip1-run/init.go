package main

import (
	"path/filepath"

	"github.com/foxxorcat/wazero-wasip1/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the default configuration into a directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path := filepath.Join(dir, config.ConfigurationName)
		if err := config.Initialize(osFs, path); err != nil {
			return err
		}
		cmd.Println("Wrote", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
