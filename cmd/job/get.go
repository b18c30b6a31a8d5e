package job

import (
	"github.com/kiln-build/kiln/cmd/output"
	"github.com/spf13/cobra"
)

var getFormat string

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one job",
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

		j, err := c.Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		return output.Render(cmd, getFormat, j, jobTable(j))
	},
}

func init() {
	output.AddFlag(getCmd, &getFormat)
}
