package cmd

import (
	"github.com/spf13/cobra"

	"github.com/razz0/ykj-wgs/internal/config"
)

// configCmd prints the effective configuration after all layers are applied.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration the converter would run with: built-in defaults,
overridden by ykj-wgs.yaml (or $YKJWGS_CONFIG), .env and YKJWGS__* variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
