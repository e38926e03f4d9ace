package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/creddhq/credd/pkg/cli/internal/output"
	"github.com/creddhq/credd/pkg/cliconfig"
	"github.com/creddhq/credd/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective CLI configuration and where each value came from",
	Long: `Show the effective CLI configuration and where each value came from.

Values are resolved in precedence order: flags, CREDD_* environment
variables, .creddrc.yaml in the current directory, the global config
under ~/.config/credd, then built-in defaults.`,
	Example: `  # Show CLI configuration with sources
  credd config

  # Show the resolved server configuration
  credd config show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliconfig.LoadAll()
		if err != nil {
			return err
		}

		if jsonOutput {
			return output.JSON(map[string]any{
				"config":  cfg,
				"sources": cfg.Sources,
			})
		}

		fmt.Println("CLI configuration:")
		printConfigLine("adminUrl", cfg.AdminURL, cfg.Sources)
		printConfigLine("timeoutSeconds", fmt.Sprintf("%d", cfg.TimeoutSeconds), cfg.Sources)
		printConfigLine("adminPort", fmt.Sprintf("%d", cfg.AdminPort), cfg.Sources)
		printConfigLine("poolUrl", cfg.PoolURL, cfg.Sources)
		if cfg.ConfigFile != "" {
			printConfigLine("configFile", cfg.ConfigFile, cfg.Sources)
		}
		printConfigLine("logLevel", cfg.LogLevel, cfg.Sources)

		// API key presence, never the key itself
		keyPath := cliconfig.GetAPIKeyFilePath()
		if _, err := os.Stat(keyPath); err == nil {
			fmt.Printf("  %-16s %s\n", "apiKeyFile", keyPath)
		} else {
			fmt.Printf("  %-16s %s (not created yet)\n", "apiKeyFile", keyPath)
		}
		return nil
	},
}

// printConfigLine prints one resolved value with its source annotation.
func printConfigLine(name, value string, sources map[string]string) {
	source := sources[name]
	if source == "" {
		source = cliconfig.SourceDefault
	}
	fmt.Printf("  %-16s %-28s (%s)\n", name, value, source)
}

var configShowFile string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved server configuration",
	Long: `Display resolved server configuration with environment variables expanded.

This command loads the server configuration (credd.yaml) and displays
the effective configuration after defaults, includes, and environment
variable substitutions have been applied.`,
	Example: `  # Show the resolved config
  credd config show

  # Output as JSON
  credd config show --json

  # Show config from a specific file
  credd config show --config ./production.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := config.LoadOrDefault(configShowFile)
		if err != nil {
			return err
		}

		if jsonOutput {
			return output.JSON(cfg)
		}

		if path == "" {
			fmt.Println("# Resolved configuration (built-in defaults, no config file found)")
		} else {
			fmt.Printf("# Resolved configuration from %s\n", path)
		}
		fmt.Println("# Environment variables have been expanded")
		fmt.Println()

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configShowFile, "config", "", "Config file path (default: discovered credd.yaml)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
