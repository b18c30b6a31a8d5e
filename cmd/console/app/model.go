package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/models"
)

type status int

type section int

const (
	statusLoading status = iota
	statusReady
	statusError
)

const (
	sectionJobs section = iota
	sectionRecipes
)

const sectionCount = 2

func (s section) next() section {
	return section((int(s) + 1) % sectionCount)
}

func (s section) prev() section {
	return section((int(s) + sectionCount - 1) % sectionCount)
}

// Model represents the Bubble Tea program state.
type Model struct {
	ctx           context.Context
	client        Client
	spinner       spinner.Model
	state         status
	err           error
	active        section
	jobs          table.Model
	recipes       table.Model
	jobList       models.Jobs
	page          int
	pages         int64
	recipesErr    error
	events        <-chan event.Event
	live          bool
	actionStatus  string
	actionErr     error
	viewportWidth int
}

// New creates the root model with dependency references.
func New(ctx context.Context, client Client) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		client:  client,
		spinner: sp,
		state:   statusLoading,
		active:  sectionJobs,
		jobs:    createTable(jobColumnTitles, []int{6, 16, 24, 12, 20, 20}, true),
		recipes: createTable(recipeColumnTitles, []int{40}, false),
		page:    1,
	}
}

// Init bootstraps async fetch, the event subscription and the
// spinner tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchJobs(m.ctx, m.client, m.page),
		fetchRecipes(m.ctx, m.client),
		subscribe(m.ctx, m.client),
	)
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.state = statusLoading
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, fetchJobs(m.ctx, m.client, m.page), fetchRecipes(m.ctx, m.client))
		case "1":
			m = m.activate(sectionJobs)
		case "2":
			m = m.activate(sectionRecipes)
		case "tab":
			m = m.activate(m.active.next())
		case "shift+tab":
			m = m.activate(m.active.prev())
		case "n", "right":
			if m.active == sectionJobs && int64(m.page) < m.pages {
				return m, fetchJobs(m.ctx, m.client, m.page+1)
			}
		case "p", "left":
			if m.active == sectionJobs && m.page > 1 {
				return m, fetchJobs(m.ctx, m.client, m.page-1)
			}
		case "x":
			if id, ok := m.selectedJobID(); ok && m.active == sectionJobs {
				return m, cancelJob(m.ctx, m.client, id)
			}
		case "t":
			if id, ok := m.selectedJobID(); ok && m.active == sectionJobs {
				return m, resetJob(m.ctx, m.client, id)
			}
		}
	case tea.WindowSizeMsg:
		height := max(5, msg.Height-7)
		width := max(20, msg.Width-8)
		m.viewportWidth = msg.Width
		m.jobs.SetHeight(height)
		m.recipes.SetHeight(height)
		m.jobs.SetWidth(width)
		m.recipes.SetWidth(width)
		m.resizeColumns(max(10, width-2))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.jobs.SetRows(jobsToRows(m.jobList, m.spinner.View()))
		return m, cmd
	case jobsLoadedMsg:
		m.state = statusReady
		m.err = nil
		m.page = msg.page
		m.pages = msg.pages
		m.jobList = msg.jobs
		m.jobs.SetRows(jobsToRows(m.jobList, m.spinner.View()))
	case recipesLoadedMsg:
		m.recipesErr = nil
		m.recipes.SetRows(recipesToRows(msg.recipes))
	case recipesErrMsg:
		m.recipesErr = msg.err
	case actionMsg:
		m = m.applyAction(msg)
		return m, fetchJobs(m.ctx, m.client, m.page)
	case subscribedMsg:
		m.live = true
		m.events = msg.events
		return m, waitForEvent(m.events)
	case eventMsg:
		var cmd tea.Cmd
		m, cmd = m.applyEvent(event.Event(msg))
		return m, tea.Batch(cmd, waitForEvent(m.events))
	case streamClosedMsg:
		m.live = false
		m.events = nil
		if msg.err != nil {
			m.setActionStatus("Live updates unavailable", msg.err)
		}
	case errMsg:
		m.state = statusError
		m.err = msg
	}

	if m.state != statusReady {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.active {
	case sectionJobs:
		m.jobs, cmd = m.jobs.Update(msg)
	case sectionRecipes:
		m.recipes, cmd = m.recipes.Update(msg)
	}

	return m, cmd
}

// applyEvent patches a visible job in place. Anything that changes
// which jobs are on the page triggers a reload.
func (m Model) applyEvent(e event.Event) (Model, tea.Cmd) {
	if e.Type == event.TypeStatus {
		for _, job := range m.jobList {
			if job.ID == e.JobID {
				job.Status = e.Status
				job.UpdatedAt = e.Timestamp
				m.jobs.SetRows(jobsToRows(m.jobList, m.spinner.View()))
				return m, nil
			}
		}
	}

	return m, fetchJobs(m.ctx, m.client, m.page)
}

func (m Model) applyAction(msg actionMsg) Model {
	if msg.err != nil {
		m.setActionStatus(fmt.Sprintf("Failed to %s job %d", msg.verb, msg.id), msg.err)
		return m
	}

	switch msg.verb {
	case "cancel":
		m.setActionStatus(fmt.Sprintf("Job %d cancelled", msg.id), nil)
	case "retry":
		m.setActionStatus(fmt.Sprintf("Job %d requeued", msg.id), nil)
	}
	return m
}

func (m *Model) setActionStatus(text string, err error) {
	m.actionStatus = text
	m.actionErr = err
}

func (m Model) selectedJobID() (uint64, bool) {
	row := m.jobs.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(row[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (m Model) activate(sec section) Model {
	m.jobs.Blur()
	m.recipes.Blur()
	switch sec {
	case sectionJobs:
		m.jobs.Focus()
	case sectionRecipes:
		m.recipes.Focus()
	}
	m.active = sec
	return m
}

func (m *Model) resizeColumns(width int) {
	if width <= 0 {
		return
	}
	m.jobs.SetColumns(buildColumns(jobColumnTitles, distributeWidths(width, jobColumnWeights)))
	m.recipes.SetColumns(buildColumns(recipeColumnTitles, distributeWidths(width, recipeColumnWeights)))
}
