package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/cli/internal/output"
)

// StatusOutput represents the JSON output format for status.
type StatusOutput struct {
	Version string              `json:"version"`
	Commit  string              `json:"commit,omitempty"`
	Uptime  string              `json:"uptime"`
	Running bool                `json:"running"`
	PID     int                 `json:"pid,omitempty"`
	Admin   StatusComponentInfo `json:"admin"`
	Pool    StatusPoolInfo      `json:"pool"`
	Stats   *StatusStats        `json:"stats,omitempty"`
}

// StatusComponentInfo contains detailed status for a component.
type StatusComponentInfo struct {
	Status string `json:"status"` // "running", "stopped", "unknown"
	URL    string `json:"url,omitempty"`
}

// StatusPoolInfo describes the upstream pool daemon.
type StatusPoolInfo struct {
	URL       string `json:"url,omitempty"`
	Reachable bool   `json:"reachable"`
}

// StatusStats contains live pool statistics from the admin API.
type StatusStats struct {
	Credentials  int   `json:"credentials"`
	Available    int   `json:"available"`
	CurrentIndex int   `json:"currentIndex"`
	Requests     int64 `json:"requests"`
}

var statusPIDFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running credd server",
	Example: `  # Check server status
  credd status

  # Output as JSON
  credd status --json

  # Use custom PID file
  credd status --pid-file /tmp/credd.pid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := statusPIDFile
		if pidPath == "" {
			pidPath = DefaultPIDPath()
		}

		info, err := ReadPIDFile(pidPath)
		if err != nil {
			// PID file doesn't exist or is invalid
			return printNotRunning()
		}

		// Check if process is actually running
		if !info.IsRunning() {
			// Stale PID file - process is not running
			return printNotRunning()
		}

		out := buildStatusOutput(info)

		// Try to fetch live stats from admin API
		if info.Components.Admin.Enabled {
			stats, poolInfo := fetchLiveStatus(info.AdminURL())
			if stats != nil {
				out.Stats = stats
			}
			if poolInfo != nil {
				out.Pool = *poolInfo
			}
		}

		if jsonOutput {
			return output.JSON(out)
		}
		printHumanStatus(out)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusPIDFile, "pid-file", "", "Path to PID file (default: ~/.credd/credd.pid)")
	rootCmd.AddCommand(statusCmd)
}

// printNotRunning prints the "not running" status.
func printNotRunning() error {
	if jsonOutput {
		return output.JSON(StatusOutput{
			Running: false,
			Admin:   StatusComponentInfo{Status: "stopped"},
		})
	}

	fmt.Println("credd is not running")
	fmt.Println()
	fmt.Println("To start: credd serve")
	return nil
}

// buildStatusOutput creates a StatusOutput from PID file info.
func buildStatusOutput(info *PIDFile) StatusOutput {
	out := StatusOutput{
		Version: info.Version,
		Commit:  info.Commit,
		Uptime:  info.FormatUptime(),
		Running: true,
		PID:     info.PID,
		Admin:   StatusComponentInfo{Status: "stopped"},
		Pool:    StatusPoolInfo{URL: info.PoolURL},
	}

	if info.Components.Admin.Enabled {
		out.Admin = StatusComponentInfo{
			Status: "running",
			URL:    info.AdminURL(),
		}
	}

	return out
}

// fetchLiveStatus fetches live statistics from the admin API. Returns nils
// when the API is unreachable; status still renders from the PID file alone.
func fetchLiveStatus(adminURL string) (*StatusStats, *StatusPoolInfo) {
	if adminURL == "" {
		return nil, nil
	}

	client := NewAdminClientWithAuth(adminURL, WithTimeout(2*time.Second))
	result, err := client.Status()
	if err != nil {
		return nil, nil
	}

	stats := &StatusStats{
		Credentials:  result.CredentialCount,
		Available:    result.AvailableCount,
		CurrentIndex: result.CurrentIndex,
		Requests:     result.RequestCount,
	}
	poolInfo := &StatusPoolInfo{
		URL:       result.PoolURL,
		Reachable: result.PoolReachable,
	}
	return stats, poolInfo
}

// printHumanStatus prints status in human-readable format.
func printHumanStatus(out StatusOutput) {
	// Header
	if out.Commit != "" {
		fmt.Printf("credd v%s (%s)\n", out.Version, out.Commit)
	} else {
		fmt.Printf("credd v%s\n", out.Version)
	}
	fmt.Println()

	// Components section
	fmt.Println("Components:")

	if out.Admin.Status == "running" {
		fmt.Printf("  Admin API  %s  %s  (uptime: %s)\n",
			text.FgGreen.Sprint("running"),
			out.Admin.URL,
			out.Uptime)
	} else {
		fmt.Printf("  Admin API  %s\n", text.FgRed.Sprint("stopped"))
	}

	if out.Pool.URL != "" {
		if out.Pool.Reachable {
			fmt.Printf("  Pool       %s  %s\n", text.FgGreen.Sprint("reachable"), out.Pool.URL)
		} else {
			fmt.Printf("  Pool       %s  %s\n", text.FgRed.Sprint("unreachable"), out.Pool.URL)
		}
	}

	// Stats section (if available)
	if out.Stats != nil {
		fmt.Println()
		fmt.Println("Pool:")
		fmt.Printf("  Credentials:    %d (%d available)\n", out.Stats.Credentials, out.Stats.Available)
		fmt.Printf("  Current index:  %d\n", out.Stats.CurrentIndex)
		fmt.Printf("  Requests:       %s\n", formatNumber(int(out.Stats.Requests)))
	}
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
