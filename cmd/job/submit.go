package job

import (
	"github.com/kiln-build/kiln/cmd/output"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/spf13/cobra"
)

var (
	submitName    string
	submitCommand string
	submitOutput  string
)

var submitCmd = &cobra.Command{
	Use:     "submit",
	Short:   "Queue a new job",
	Example: `kiln job submit --name build --command "compile release" --output out/app.bin`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		req := &client.SubmitRequest{Name: submitName, Command: submitCommand}
		if submitOutput != "" {
			req.Output = &submitOutput
		}

		j, err := c.Submit(cmd.Context(), req)
		if err != nil {
			return err
		}

		return output.Line(cmd, "Job %d queued (%s)\n", j.ID, j.Status)
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitName, "name", "", "Job name (required)")
	submitCmd.Flags().StringVar(&submitCommand, "command", "", "Recipe and arguments to run (required)")
	submitCmd.Flags().StringVar(&submitOutput, "output", "", "Artifact the job must produce, relative to the output directory")
	submitCmd.MarkFlagRequired("name")    //nolint:errcheck
	submitCmd.MarkFlagRequired("command") //nolint:errcheck
}
