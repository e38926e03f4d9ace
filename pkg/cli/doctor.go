package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/cli/internal/ports"
	"github.com/creddhq/credd/pkg/cliconfig"
	"github.com/creddhq/credd/pkg/config"
)

var (
	doctorConfigFile string
	doctorAdminPort  int
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common setup issues and validate configuration",
	Long:  `Diagnose common setup issues and validate configuration.`,
	Example: `  # Run all checks with defaults
  credd doctor

  # Validate a specific config file
  credd doctor --config credd.yaml

  # Check a custom admin port
  credd doctor -a 3001`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorConfigFile, "config", "", "Path to config file to validate")
	doctorCmd.Flags().IntVarP(&doctorAdminPort, "admin-port", "a", config.DefaultAdminPort, "Admin API port to check")
}

// doctorCheck holds the result of a single doctor check.
type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "fail", "info"
	Detail string `json:"detail"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	adminPort := doctorAdminPort

	allPassed := true
	var checks []doctorCheck

	// Check 1: Is the server already responding?
	serverRunning := checkCreddRunning(adminPort)
	if serverRunning {
		checks = append(checks, doctorCheck{Name: "credd_running", Status: "ok", Detail: fmt.Sprintf("responding on :%d", adminPort)})
	} else {
		checks = append(checks, doctorCheck{Name: "credd_running", Status: "info", Detail: fmt.Sprintf("not running on :%d", adminPort)})
	}

	// Check 2: Admin port availability (only meaningful when not running)
	if serverRunning {
		checks = append(checks, doctorCheck{Name: fmt.Sprintf("port_%d_admin_api", adminPort), Status: "ok", Detail: "in use by credd"})
	} else if ports.IsAvailable(adminPort) {
		checks = append(checks, doctorCheck{Name: fmt.Sprintf("port_%d_admin_api", adminPort), Status: "ok", Detail: "available"})
	} else {
		checks = append(checks, doctorCheck{Name: fmt.Sprintf("port_%d_admin_api", adminPort), Status: "fail", Detail: "in use by another process"})
		allPassed = false
	}

	// Check 3: Config file validation
	configToValidate := doctorConfigFile
	if configToValidate == "" {
		if discovered, err := config.Discover(); err == nil {
			configToValidate = discovered
		} else if !errors.Is(err, config.ErrNoConfigFound) {
			checks = append(checks, doctorCheck{Name: "config_file", Status: "fail", Detail: err.Error()})
			allPassed = false
		}
	}
	if configToValidate != "" {
		if err := validateServerConfig(configToValidate); err != nil {
			checks = append(checks, doctorCheck{Name: "config_file", Status: "fail", Detail: err.Error()})
			allPassed = false
		} else {
			checks = append(checks, doctorCheck{Name: "config_file", Status: "ok", Detail: configToValidate})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "config_file", Status: "info", Detail: "none found, built-in defaults apply"})
	}

	// Check 4: Pool daemon reachability, as seen by the running server
	if serverRunning {
		client := NewAdminClientWithAuth(
			fmt.Sprintf("http://localhost:%d", adminPort),
			WithTimeout(2*time.Second),
		)
		if status, err := client.Status(); err == nil {
			if status.PoolReachable {
				checks = append(checks, doctorCheck{Name: "pool_daemon", Status: "ok", Detail: fmt.Sprintf("reachable at %s", status.PoolURL)})
			} else {
				checks = append(checks, doctorCheck{Name: "pool_daemon", Status: "fail", Detail: fmt.Sprintf("unreachable at %s", status.PoolURL)})
				allPassed = false
			}
		} else {
			checks = append(checks, doctorCheck{Name: "pool_daemon", Status: "info", Detail: "status query failed: " + err.Error()})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "pool_daemon", Status: "info", Detail: "skipped, server not running"})
	}

	// Check 5: Default config locations
	foundConfigs := findDefaultConfigs()
	if len(foundConfigs) > 0 {
		checks = append(checks, doctorCheck{Name: "default_configs", Status: "ok", Detail: fmt.Sprintf("found %d: %s", len(foundConfigs), strings.Join(foundConfigs, ", "))})
	} else {
		checks = append(checks, doctorCheck{Name: "default_configs", Status: "info", Detail: "none found"})
	}

	// Check 6: PID file
	pidPath := DefaultPIDPath()
	if info, err := ReadPIDFile(pidPath); err == nil {
		if info.IsRunning() {
			checks = append(checks, doctorCheck{Name: "pid_file", Status: "ok", Detail: fmt.Sprintf("PID %d, running", info.PID)})
		} else {
			checks = append(checks, doctorCheck{Name: "pid_file", Status: "info", Detail: fmt.Sprintf("PID %d, stale", info.PID)})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "pid_file", Status: "info", Detail: "not found"})
	}

	// Check 7: Admin API key file
	keyPath := cliconfig.GetAPIKeyFilePath()
	if _, err := os.Stat(keyPath); err == nil {
		checks = append(checks, doctorCheck{Name: "api_key_file", Status: "ok", Detail: keyPath})
	} else {
		checks = append(checks, doctorCheck{Name: "api_key_file", Status: "info", Detail: fmt.Sprintf("not found (will be generated at %s)", keyPath)})
	}

	printResult(map[string]any{"checks": checks, "allPassed": allPassed}, func() {
		fmt.Println("credd doctor")
		fmt.Println("============")
		fmt.Println()
		for _, c := range checks {
			switch c.Status {
			case "ok":
				fmt.Printf("  ✓ %s: %s\n", c.Name, c.Detail)
			case "fail":
				fmt.Printf("  ✗ %s: %s\n", c.Name, c.Detail)
			default:
				fmt.Printf("  • %s: %s\n", c.Name, c.Detail)
			}
		}
		fmt.Println()
		if allPassed {
			fmt.Println("All checks passed!")
		} else {
			fmt.Println("Some checks failed. See above for details.")
		}
	})

	return nil
}

// validateServerConfig loads and validates a config file.
func validateServerConfig(path string) error {
	_, err := config.Load(path)
	return err
}

// checkCreddRunning checks if the credd admin API is responding.
func checkCreddRunning(adminPort int) bool {
	client := NewAdminClientWithAuth(
		fmt.Sprintf("http://localhost:%d", adminPort),
		WithTimeout(2*time.Second),
	)
	return client.Health() == nil
}

// findDefaultConfigs looks for config files in common locations.
func findDefaultConfigs() []string {
	var found []string
	candidates := []string{
		"credd.yaml",
		"credd.yml",
		".credd.yaml",
		".credd.yml",
	}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			found = append(found, name)
		}
	}

	return found
}
