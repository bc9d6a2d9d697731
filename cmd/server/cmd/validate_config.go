package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/alert-router/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the configuration file without starting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFilePath(configFile, os.LookupEnv)

		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("config OK: %s\n", path)
		fmt.Printf("  channels: %d\n", len(cfg.Channels))
		fmt.Printf("  routing rules: %d\n", len(cfg.Routing))
		return nil
	},
}
