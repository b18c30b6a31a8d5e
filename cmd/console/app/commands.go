package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/kiln-build/kiln/pkg/client"
)

// Client is the part of the API client the console uses.
type Client interface {
	List(ctx context.Context, page, pageSize int) (*client.JobPage, error)
	Recipes(ctx context.Context, match string) ([]string, error)
	Cancel(ctx context.Context, id uint64) (bool, error)
	Reset(ctx context.Context, id uint64) (*models.Job, error)
	Events(ctx context.Context, jobID uint64, types []event.Type) (<-chan event.Event, error)
}

func fetchJobs(ctx context.Context, c Client, page int) tea.Cmd {
	return func() tea.Msg {
		resp, err := c.List(ctx, page, 0)
		if err != nil {
			return errMsg(err)
		}
		return jobsLoadedMsg{page: page, jobs: resp.Jobs, pages: resp.Pages}
	}
}

func fetchRecipes(ctx context.Context, c Client) tea.Cmd {
	return func() tea.Msg {
		recipes, err := c.Recipes(ctx, "")
		if err != nil {
			return recipesErrMsg{err: err}
		}
		return recipesLoadedMsg{recipes: recipes}
	}
}

func cancelJob(ctx context.Context, c Client, id uint64) tea.Cmd {
	return func() tea.Msg {
		if _, err := c.Cancel(ctx, id); err != nil {
			return actionMsg{verb: "cancel", id: id, err: err}
		}
		return actionMsg{verb: "cancel", id: id}
	}
}

func resetJob(ctx context.Context, c Client, id uint64) tea.Cmd {
	return func() tea.Msg {
		if _, err := c.Reset(ctx, id); err != nil {
			return actionMsg{verb: "retry", id: id, err: err}
		}
		return actionMsg{verb: "retry", id: id}
	}
}

func subscribe(ctx context.Context, c Client) tea.Cmd {
	return func() tea.Msg {
		ch, err := c.Events(ctx, 0, nil)
		if err != nil {
			return streamClosedMsg{err: err}
		}
		return subscribedMsg{events: ch}
	}
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(e)
	}
}

type jobsLoadedMsg struct {
	page  int
	jobs  models.Jobs
	pages int64
}

type recipesLoadedMsg struct {
	recipes []string
}

type recipesErrMsg struct {
	err error
}

type actionMsg struct {
	verb string
	id   uint64
	err  error
}

type subscribedMsg struct {
	events <-chan event.Event
}

type streamClosedMsg struct {
	err error
}

type eventMsg event.Event

type errMsg error
