package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopPIDFile string
	stopForce   bool
	stopTimeout int
)

// stopCmd stops a server started with serve (typically serve -d).
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running credd server",
	Long: `Stop the credd server identified by the PID file.

Sends a graceful shutdown signal and waits for the process to exit.
Use --force to kill the process immediately when it does not respond.`,
	Example: `  # Stop the server
  credd stop

  # Force stop
  credd stop --force

  # Stop with a custom PID file
  credd stop --pid-file /tmp/credd.pid`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(stopPIDFile, stopForce, stopTimeout)
	},
}

func init() {
	stopCmd.Flags().StringVar(&stopPIDFile, "pid-file", "", "Path to PID file (default: ~/.credd/credd.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill the process instead of asking it to shut down")
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 10, "Seconds to wait for graceful shutdown")
	rootCmd.AddCommand(stopCmd)
}

// runStop reads the PID file and signals the recorded process.
func runStop(pidPath string, force bool, timeoutSeconds int) error {
	if pidPath == "" {
		pidPath = DefaultPIDPath()
	}

	info, err := ReadPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("credd is not running (no PID file found at %s)", pidPath)
	}

	if !info.IsRunning() {
		// Stale PID file - clean it up
		_ = RemovePIDFile(pidPath)
		return errors.New("credd is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", info.PID, err)
	}

	sig := signalTerm
	sigName := signalTermName()
	if force {
		sig = signalKill
		sigName = signalKillName()
	}

	fmt.Printf("Stopping credd (PID %d) with %s... ", info.PID, sigName)

	if err := process.Signal(sig); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("failed to send signal: %w", err)
	}

	// A force kill has nothing to wait for
	if force {
		fmt.Println("done")
		time.Sleep(100 * time.Millisecond)
		_ = RemovePIDFile(pidPath)
		return nil
	}

	// Wait for the process to exit, polling
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	for time.Now().Before(deadline) {
		if !checkProcessRunning(info.PID) {
			fmt.Println("done")
			_ = RemovePIDFile(pidPath)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("timeout")
	fmt.Printf("\nProcess did not stop within %d seconds.\n", timeoutSeconds)
	fmt.Println("Try: credd stop --force")
	return errors.New("timeout waiting for process to stop")
}
