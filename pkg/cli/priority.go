package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/creddhq/credd/pkg/api/types"
)

var priorityCmd = &cobra.Command{
	Use:   "priority INDEX VALUE",
	Short: "Set the scheduling priority of a credential",
	Long: `Set the scheduling priority of a credential.

Lower values are preferred: the pool rotates through priority-0 credentials
first and only falls back to higher values when none are available.`,
	Example: `  # Prefer credential 0
  credd priority 0 0

  # Demote credential 2
  credd priority 2 10`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndexArg(args[0])
		if err != nil {
			return err
		}
		priority, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: must be an integer", args[1])
		}

		client := NewClientFromConfig(adminURL)
		msg, err := client.SetPriority(index, priority)
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
	rootCmd.AddCommand(priorityCmd)
}
