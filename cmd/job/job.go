package job

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/spf13/cobra"
)

// Cmd is the parent command for job operations.
var Cmd = &cobra.Command{
	Use:     "job",
	Short:   "Submit and manage build jobs",
	Aliases: []string{"jobs", "j"},
}

// newClient is swapped out in tests.
var newClient = client.FromEnv

func init() {
	Cmd.AddCommand(submitCmd, listCmd, getCmd, cancelCmd, resetCmd, logCmd)
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

func jobTable(jobs ...*models.Job) func(w io.Writer) error {
	return func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "ID\tNAME\tCOMMAND\tOUTPUT\tSTATUS\tCREATED\tUPDATED"); err != nil {
			return err
		}
		for _, j := range jobs {
			out := "-"
			if j.Output != nil {
				out = *j.Output
			}
			if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.Name, j.Command, out, j.Status,
				j.CreatedAt.Local().Format(time.DateTime),
				j.UpdatedAt.Local().Format(time.DateTime),
			); err != nil {
				return err
			}
		}
		return nil
	}
}
