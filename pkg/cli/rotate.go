package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Force the pool to advance to the next credential",
	Example: `  # Rotate away from the current credential
  credd rotate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClientFromConfig(adminURL)
		result, err := client.Rotate()
		if err != nil {
			return fmt.Errorf("%s", FormatConnectionError(err))
		}

		printResult(result, func() {
			if result.Message != "" {
				fmt.Println(result.Message)
			} else {
				fmt.Printf("rotated from credential %d to %d\n",
					result.PreviousIndex, result.CurrentIndex)
			}
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}
