package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kiln-build/kiln/cmd/output"
	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/spf13/cobra"
)

var (
	jobID  uint64
	types  []string
	asJSON bool

	newClient = client.FromEnv
)

// Cmd follows job status changes until interrupted.
var Cmd = &cobra.Command{
	Use:     "events",
	Short:   "Follow job status changes",
	Aliases: []string{"watch"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		filter := make([]event.Type, 0, len(types))
		for _, t := range types {
			filter = append(filter, event.Type(strings.TrimSpace(t)))
		}

		ch, err := c.Events(cmd.Context(), jobID, filter)
		if err != nil {
			return err
		}

		for e := range ch {
			if err := printEvent(cmd, e); err != nil {
				return err
			}
		}
		return nil
	},
}

func printEvent(cmd *cobra.Command, e event.Event) error {
	if asJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return output.Line(cmd, "%s\n", data)
	}

	ts := e.Timestamp.Local().Format(time.TimeOnly)
	switch e.Type {
	case event.TypeLagged:
		return output.Line(cmd, "%s  missed %d events\n", ts, e.Missed)
	case event.TypeCancelled:
		return output.Line(cmd, "%s  job %d cancelled\n", ts, e.JobID)
	default:
		return output.Line(cmd, "%s  job %d %s\n", ts, e.JobID, e.Status)
	}
}

func init() {
	Cmd.Flags().Uint64Var(&jobID, "job-id", 0, "Only follow this job")
	Cmd.Flags().StringSliceVar(&types, "types", nil, fmt.Sprintf("Event types to follow (%s, %s, %s)",
		event.TypeStatus, event.TypeCancelled, event.TypeLagged))
	Cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw events as JSON lines")
}
