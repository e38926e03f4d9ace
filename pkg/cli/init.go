package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/creddhq/credd/pkg/config"
)

// starterConfig is the commented config written by non-interactive init.
// Every key matches the server configuration schema.
const starterConfig = `# credd.yaml
# Generated by: credd init
#
# Start server:  credd serve --config credd.yaml
# Check status:  credd status

version: "1"

admin:
  port: 4780
  # Serve the API under a path prefix when behind a reverse proxy.
  # basePath: /credd
  auth:
    enabled: true
    # The key is generated on first start and stored in the user data
    # directory. Uncomment to pin one instead:
    # key: ${CREDD_API_KEY}
    allowLocalhost: true
  # cors:
  #   allowedOrigins:
  #     - https://dashboard.example.com
  rateLimit:
    enabled: true
    requestsPerSecond: 10
    burst: 20

pool:
  url: http://localhost:4785
  # token: ${CREDD_POOL_TOKEN}
  timeoutSeconds: 30

webui:
  enabled: true

logging:
  level: info
  format: text
  output: stderr
  # Ship logs to Grafana Loki as well:
  # loki:
  #   endpoint: http://localhost:3100/loki/api/v1/push

# audit:
#   enabled: true
#   outputFile: credd-audit.jsonl

# tracing:
#   enabled: true
#   exporter: otlp
#   endpoint: localhost:4318
#   sampleRatio: 0.1
`

var (
	initForce       bool
	initOutput      string
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter credd configuration file",
	Example: `  # Create default credd.yaml
  credd init

  # Interactive setup
  credd init -i

  # Create with custom filename
  credd init -o server.yaml

  # Overwrite existing config
  credd init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if file already exists
		if _, err := os.Stat(initOutput); err == nil {
			if !initForce {
				return fmt.Errorf("file already exists: %s\n\nUse --force to overwrite", initOutput)
			}
		}

		var data []byte
		if initInteractive {
			cfg, err := runInteractiveInit()
			if err != nil {
				return err
			}
			data, err = generateYAMLWithComments(cfg)
			if err != nil {
				return fmt.Errorf("failed to generate YAML: %w", err)
			}
		} else {
			data = []byte(starterConfig)
		}

		if err := os.WriteFile(initOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}

		fmt.Printf("Created %s\n", initOutput)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Printf("  credd serve --config %s\n", initOutput)
		fmt.Println("  credd status")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "credd.yaml", "Output filename")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Interactive mode - prompts for configuration")
	rootCmd.AddCommand(initCmd)
}

// runInteractiveInit prompts for the common settings and builds a config
// on top of the defaults.
func runInteractiveInit() (*config.Config, error) {
	var (
		adminPort   string
		poolURL     string
		logLevel    = "info"
		authEnabled = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Admin API port").
				Placeholder(strconv.Itoa(config.DefaultAdminPort)).
				Value(&adminPort).
				Validate(validatePortInput),
			huh.NewInput().
				Title("Pool daemon URL").
				Placeholder(config.DefaultPoolURL).
				Value(&poolURL).
				Validate(validateURLInput),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&logLevel),
			huh.NewConfirm().
				Title("Require an API key for admin requests?").
				Value(&authEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if adminPort != "" {
		cfg.Admin.Port, _ = strconv.Atoi(adminPort)
	}
	if poolURL != "" {
		cfg.Pool.URL = poolURL
	}
	cfg.Logging.Level = logLevel
	cfg.Admin.Auth.Enabled = authEnabled
	return cfg, nil
}

// validatePortInput accepts an empty string (keep the default) or a port.
func validatePortInput(s string) error {
	if s == "" {
		return nil
	}
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port between 1 and 65535")
	}
	return nil
}

// validateURLInput accepts an empty string (keep the default) or an
// http(s) URL.
func validateURLInput(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// generateYAMLWithComments generates YAML output with header comments.
func generateYAMLWithComments(cfg *config.Config) ([]byte, error) {
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	header := `# credd.yaml
# Generated by: credd init
#
# Start server:  credd serve --config credd.yaml
# Check status:  credd status

`
	return append([]byte(header), yamlData...), nil
}
