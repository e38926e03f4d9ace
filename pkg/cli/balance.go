package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance INDEX",
	Short: "Show upstream usage for a credential",
	Long: `Show upstream usage for a credential.

The server queries the upstream account live, so this reports the same
numbers the provider's own dashboard would show.`,
	Example: `  # Check remaining quota on credential 1
  credd balance 1

  # As JSON
  credd balance 1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndexArg(args[0])
		if err != nil {
			return err
		}

		client := NewClientFromConfig(adminURL)
		balance, err := client.GetBalance(index)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				switch {
				case apiErr.IsNotFound():
					return fmt.Errorf("%s", FormatNotFoundError(index))
				case apiErr.StatusCode == http.StatusBadGateway:
					return fmt.Errorf("upstream balance query failed: %s", apiErr.Message)
				}
			}
			return fmt.Errorf("%s", FormatConnectionError(err))
		}

		printResult(balance, func() {
			fmt.Printf("Credential %d balance\n", balance.Index)
			if balance.SubscriptionTitle != "" {
				fmt.Printf("  Subscription:  %s\n", balance.SubscriptionTitle)
			}
			fmt.Printf("  Used:          %.2f of %.2f (%.1f%%)\n",
				balance.CurrentUsage, balance.UsageLimit, balance.UsagePercentage)
			fmt.Printf("  Remaining:     %.2f\n", balance.Remaining)
			if balance.NextResetAt != nil {
				fmt.Printf("  Next reset:    %s\n", balance.NextResetAt.Format(time.RFC3339))
			}
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
