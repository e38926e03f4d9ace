package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// parseIndexArg parses a positional pool index argument.
func parseIndexArg(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid credential index %q: must be a non-negative integer", arg)
	}
	return index, nil
}

var getCmd = &cobra.Command{
	Use:   "get INDEX",
	Short: "Show details of a single credential",
	Example: `  # Show credential 0
  credd get 0

  # Show as JSON
  credd get 0 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndexArg(args[0])
		if err != nil {
			return err
		}

		client := NewClientFromConfig(adminURL)
		cred, err := client.GetCredential(index)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok && apiErr.IsNotFound() {
				return fmt.Errorf("%s", FormatNotFoundError(index))
			}
			return fmt.Errorf("%s", FormatConnectionError(err))
		}

		printResult(cred, func() {
			fmt.Printf("Credential %d\n", cred.Index)
			fmt.Printf("  State:        %s\n", colorState(credentialState(cred)))
			fmt.Printf("  Priority:     %d\n", cred.Priority)
			fmt.Printf("  Failures:     %d\n", cred.FailureCount)
			fmt.Printf("  Auth method:  %s\n", cred.AuthMethod)
			if cred.ExpiresAt != nil {
				fmt.Printf("  Expires:      %s (%s)\n",
					cred.ExpiresAt.Format(time.RFC3339), formatExpiry(cred.ExpiresAt))
			}
			fmt.Printf("  Profile ARN:  %t\n", cred.HasProfileARN)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
