package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/api/types"
)

var resetCmd = &cobra.Command{
	Use:   "reset INDEX",
	Short: "Clear failure state and re-enable a credential",
	Example: `  # Reset credential 1 after fixing its upstream account
  credd reset 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndexArg(args[0])
		if err != nil {
			return err
		}

		client := NewClientFromConfig(adminURL)
		msg, err := client.ResetCredential(index)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok && apiErr.IsNotFound() {
				return fmt.Errorf("%s", FormatNotFoundError(index))
			}
			return fmt.Errorf("%s", FormatConnectionError(err))
		}

		printResult(types.MessageResponse{Message: msg}, func() {
			fmt.Println(msg)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
