package job

import (
	"fmt"
	"io"

	"github.com/kiln-build/kiln/cmd/output"
	"github.com/spf13/cobra"
)

var (
	listPage     int
	listPageSize int
	listFormat   string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List jobs, newest first",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		page, err := c.List(cmd.Context(), listPage, listPageSize)
		if err != nil {
			return err
		}

		return output.Render(cmd, listFormat, page, func(w io.Writer) error {
			if err := jobTable(page.Jobs...)(w); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "\nPage %d of %d\n", listPage, page.Pages)
			return err
		})
	},
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page to show, starting at 1")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Jobs per page (server default when 0)")
	output.AddFlag(listCmd, &listFormat)
}
