package cmd

import (
	"github.com/kiln-build/kiln/cmd/console"
	"github.com/kiln-build/kiln/cmd/events"
	"github.com/kiln-build/kiln/cmd/job"
	"github.com/kiln-build/kiln/cmd/recipes"
	"github.com/kiln-build/kiln/cmd/start"
	"github.com/spf13/cobra"
)

var cmds = []*cobra.Command{
	start.Cmd,
	job.Cmd,
	recipes.Cmd,
	events.Cmd,
	console.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use:           "kiln",
		Short:         "Queue and run build recipes one at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
