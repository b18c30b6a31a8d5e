package console

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kiln-build/kiln/cmd/console/app"
	"github.com/kiln-build/kiln/pkg/client"
	"github.com/spf13/cobra"
)

const (
	usage   = "console"
	short   = "Open a console session to watch the job queue"
	long    = "This command starts the interactive kiln console"
	example = "kiln console"
)

// Cmd is the Cobra command entrypoint.
var Cmd = &cobra.Command{
	Use:        usage,
	Short:      short,
	Long:       long,
	Aliases:    []string{"c"},
	SuggestFor: []string{"tui", "terminal", "ui"},
	Example:    example,
	Args:       cobra.NoArgs,
	RunE:       run,
}

func run(cmd *cobra.Command, args []string) error {
	c, err := client.FromEnv()
	if err != nil {
		return err
	}

	p := tea.NewProgram(app.New(cmd.Context(), c), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
