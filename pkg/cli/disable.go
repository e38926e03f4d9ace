package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/api/types"
)

var disableCmd = &cobra.Command{
	Use:   "disable INDEX",
	Short: "Disable a credential so the pool skips it",
	Example: `  # Take credential 2 out of rotation
  credd disable 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(args[0], true)
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable INDEX",
	Short: "Re-enable a disabled credential",
	Example: `  # Put credential 2 back into rotation
  credd enable 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(args[0], false)
	},
}

func setDisabled(arg string, disabled bool) error {
	index, err := parseIndexArg(arg)
	if err != nil {
		return err
	}

	client := NewClientFromConfig(adminURL)
	msg, err := client.SetDisabled(index, disabled)
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
}

func init() {
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(enableCmd)
}
