package recipes

import (
	"fmt"
	"io"

	"github.com/kiln-build/kiln/cmd/output"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/spf13/cobra"
)

var (
	match  string
	format string

	newClient = client.FromEnv
)

// Cmd lists the recipes the runner can execute.
var Cmd = &cobra.Command{
	Use:     "recipes",
	Short:   "List the recipes jobs can run",
	Example: "kiln recipes --match 'build_*'",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		recipes, err := c.Recipes(cmd.Context(), match)
		if err != nil {
			return err
		}

		return output.Render(cmd, format, recipes, func(w io.Writer) error {
			for _, r := range recipes {
				if _, err := fmt.Fprintln(w, r); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	Cmd.Flags().StringVar(&match, "match", "", "Only show recipes whose name matches this glob")
	output.AddFlag(Cmd, &format)
}
