package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/creddhq/credd/pkg/api/types"
	"github.com/creddhq/credd/pkg/cli/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all credentials in the pool",
	Example: `  # List credentials from the running server
  credd list

  # List as JSON
  credd list --json

  # List from a remote server
  credd list --admin-url http://remote:4780`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClientFromConfig(adminURL)
		list, err := client.ListCredentials()
		if err != nil {
			return fmt.Errorf("%s", FormatConnectionError(err))
		}

		if jsonOutput {
			return output.JSON(list)
		}

		renderCredentialTable(list)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// renderCredentialTable prints the pool listing as a table.
func renderCredentialTable(list *types.CredentialListResponse) {
	if len(list.Credentials) == 0 {
		fmt.Println("No credentials in pool")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "State", "Priority", "Failures", "Auth", "Expires"})

	for _, c := range list.Credentials {
		t.AppendRow(table.Row{
			c.Index,
			colorState(credentialState(c)),
			c.Priority,
			c.FailureCount,
			string(c.AuthMethod),
			formatExpiry(c.ExpiresAt),
		})
	}
	t.Render()

	fmt.Printf("\n%d credentials, %d available (current: %d)\n",
		list.Total, list.Available, list.CurrentIndex)
}

// credentialState derives the display state for a credential.
func credentialState(c *types.CredentialStatus) string {
	switch {
	case c.Disabled:
		return "disabled"
	case c.IsCurrent:
		return "current"
	case c.FailureCount > 0:
		return "degraded"
	default:
		return "available"
	}
}

// colorState returns a title-cased, colored state label.
func colorState(state string) string {
	label := cases.Title(language.English).String(state)
	switch state {
	case "current":
		return text.FgGreen.Sprint(label)
	case "degraded":
		return text.FgYellow.Sprint(label)
	case "disabled":
		return text.FgRed.Sprint(label)
	}
	return label
}

// formatExpiry renders a credential expiry as relative time.
func formatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	if time.Now().After(*t) {
		return text.FgRed.Sprint("expired")
	}
	return "in " + time.Until(*t).Round(time.Minute).String()
}
