package job

import (
	"github.com/kiln-build/kiln/cmd/output"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:     "cancel ID",
	Short:   "Delete a job; a running job finishes but its result is dropped",
	Aliases: []string{"rm", "delete"},
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

		deleted, err := c.Cancel(cmd.Context(), id)
		if err != nil {
			return err
		}

		if !deleted {
			return output.Line(cmd, "Job %d not found\n", id)
		}
		return output.Line(cmd, "Job %d cancelled\n", id)
	},
}
