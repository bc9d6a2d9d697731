package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "alert-router",
	Short: "Normalize, route and deliver Alertmanager and Grafana alerts",
	Long: `alert-router receives Alertmanager and Grafana webhooks, normalizes
them into a canonical alert record, routes them through a declarative
rule set, deduplicates build-system noise, optionally attaches a
trend-graph image, and delivers per-channel templates to chat bots and
generic webhooks.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml (default: $CONFIG_FILE or ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateConfigCmd)
}
