package cli

import (
	"fmt"
	"os"

	"github.com/creddhq/credd/pkg/cliconfig"
	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	adminURL   string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "credd",
	Short: "credd is a credential pool admin server",
	Long: `credd exposes a running credential pool daemon through a REST admin API
with a bundled dashboard, and manages it from the command line: inspect
credentials, disable or re-prioritize them, check balances, and force
rotation.

Configuration can be provided via flags, environment variables, or a
configuration file. The CLI looks for .creddrc.yaml in the working
directory and config.yaml under ~/.config/credd.`,
	// No Run function here means 'credd' with no args will print help text by default.
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Define persistent flags that apply globally to all credd commands
	rootCmd.PersistentFlags().StringVar(&adminURL, "admin-url", cliconfig.GetAdminURL(), "Admin API base URL (default: http://localhost:4780)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
