package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/api/types"
	"github.com/creddhq/credd/pkg/cliconfig"
	"github.com/creddhq/credd/pkg/ratelimit"
)

var watchNoReconnect bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live pool snapshots from the server",
	Long: `Stream live pool snapshots from the server.

Connects to the admin event stream and prints a line whenever the pool
changes: rotations, disables, failure count changes. With --json each
snapshot is printed as one JSON line.`,
	Example: `  # Watch the pool
  credd watch

  # Machine-readable stream
  credd watch --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cliconfig.ResolveClientConfig(adminURL)
		return watchEvents(cfg.AdminURL, cfg.APIKey)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoReconnect, "no-reconnect", false, "Exit when the stream drops instead of reconnecting")
	rootCmd.AddCommand(watchCmd)
}

// watchEvents runs the watch loop until interrupted. Dropped streams are
// reconnected with the last seen event ID so snapshots are not replayed.
func watchEvents(watchURL, apiKey string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping watch...")
		cancel()
	}()

	if !jsonOutput {
		fmt.Println("Watching pool events (press Ctrl+C to stop)...")
		fmt.Println()
	}

	// Pace reconnects so a flapping server is not hammered.
	limiter := ratelimit.NewBucket(0.5, 1)
	lastEventID := ""
	everConnected := false

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		id, connected, err := streamEvents(ctx, watchURL, apiKey, lastEventID)
		if id != "" {
			lastEventID = id
		}
		if connected {
			everConnected = true
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if !everConnected {
				// Never reached the server: fail fast instead of retrying.
				return fmt.Errorf("%s", FormatConnectionError(err))
			}
			if watchNoReconnect {
				return err
			}
			fmt.Fprintf(os.Stderr, "stream interrupted: %v (reconnecting)\n", err)
			continue
		}
		if watchNoReconnect {
			return nil
		}
		// Server closed the stream; reconnect and resume.
	}
}

// streamEvents consumes one SSE connection and returns the last event ID
// seen, whether the connection was established, and any stream error.
func streamEvents(ctx context.Context, watchURL, apiKey, lastEventID string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL+"/api/events", nil)
	if err != nil {
		return lastEventID, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	// No client timeout: the stream is long-lived.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return lastEventID, false, nil // Context cancelled, clean exit
		}
		return lastEventID, false, &APIError{
			StatusCode: 0,
			ErrorCode:  "connection_error",
			Message:    fmt.Sprintf("cannot connect to admin API at %s: %v", watchURL, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lastEventID, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var currentEvent string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Frame boundary
			currentEvent = ""
		case strings.HasPrefix(line, ":"):
			// Heartbeat comment
		case strings.HasPrefix(line, "id: "):
			lastEventID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			if currentEvent == "snapshot" {
				printSnapshot(data)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return lastEventID, true, nil // Context cancelled, clean exit
		}
		return lastEventID, true, fmt.Errorf("error reading stream: %w", err)
	}
	return lastEventID, true, nil
}

// printSnapshot renders one pool snapshot line.
func printSnapshot(data string) {
	if jsonOutput {
		fmt.Println(data)
		return
	}

	var snap types.CredentialListResponse
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return // Skip invalid frames
	}

	states := make([]string, 0, len(snap.Credentials))
	for _, c := range snap.Credentials {
		states = append(states, fmt.Sprintf("%d:%s", c.Index, credentialState(c)))
	}
	fmt.Printf("%s  current=%d  available=%d/%d  [%s]\n",
		time.Now().Format("15:04:05"),
		snap.CurrentIndex, snap.Available, snap.Total,
		strings.Join(states, " "))
}
