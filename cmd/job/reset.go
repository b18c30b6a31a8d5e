package job

import (
	"github.com/kiln-build/kiln/cmd/output"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset ID",
	Short: "Requeue a job that failed today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		j, err := c.Reset(cmd.Context(), id)
		if err != nil {
			return err
		}

		return output.Line(cmd, "Job %d requeued (%s)\n", j.ID, j.Status)
	},
}
