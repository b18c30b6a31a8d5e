package job

import (
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:     "log ID",
	Short:   "Print a job's combined output",
	Aliases: []string{"logs"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		return c.Log(cmd.Context(), id, cmd.OutOrStdout())
	},
}
