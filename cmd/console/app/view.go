package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	tabActive    = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("202")).Bold(true)
	tabInactive  = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("240"))
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingRight(1)
	sectionNames = map[section]string{
		sectionJobs:    "Jobs",
		sectionRecipes: "Recipes",
	}
)

// View renders the interface.
func (m Model) View() string {
	tabs := renderTabsBar(m.active, m.viewportWidth)

	footerKeys := "[1/2] switch  [tab] cycle  [r] reload  [q] quit"
	if m.active == sectionJobs {
		footerKeys += "  [n/p] page  [x] cancel  [t] retry"
	}
	footer := barStyle.Render(footerKeys)
	if status := m.statusLine(); status != "" {
		footer = lipgloss.JoinHorizontal(lipgloss.Top, footer, status)
	}

	var body string

	switch m.state {
	case statusLoading:
		body = centerText(fmt.Sprintf("%s Loading jobs…", m.spinner.View()))
	case statusError:
		body = boxStyle.Render("Failed to load jobs: " + m.err.Error())
	case statusReady:
		switch m.active {
		case sectionRecipes:
			if m.recipesErr != nil {
				body = boxStyle.Render("Failed to load recipes: " + m.recipesErr.Error())
			} else {
				body = m.renderTablePane(m.recipes)
			}
		default:
			body = m.renderTablePane(m.jobs)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabs, body, footer)
}

func (m Model) statusLine() string {
	parts := make([]string, 0, 3)
	if m.active == sectionJobs && m.state == statusReady {
		parts = append(parts, fmt.Sprintf("page %d/%d", m.page, max(m.pages, 1)))
	}
	if m.live {
		parts = append(parts, "● live")
	}

	line := barStyle.Render(strings.Join(parts, "  "))
	if m.actionStatus == "" {
		return line
	}

	if m.actionErr != nil {
		return lipgloss.JoinHorizontal(lipgloss.Top, line,
			errorStyle.Render(fmt.Sprintf("%s: %v", m.actionStatus, m.actionErr)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, line, barStyle.Render(m.actionStatus))
}

func (m Model) renderTablePane(tbl table.Model) string {
	available := m.viewportWidth
	if available <= 0 {
		available = 80
	}
	available = max(20, available-2)

	border := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("202"))

	innerWidth := max(available-border.GetHorizontalFrameSize(), 20)
	tbl.SetWidth(innerWidth)

	content := lipgloss.NewStyle().
		Width(innerWidth).
		MaxWidth(innerWidth).
		Render(tbl.View())

	return border.Width(available).Render(content)
}

func renderTabs(active section) string {
	tabs := make([]string, 0, sectionCount)
	for sec := section(0); sec < sectionCount; sec++ {
		label := fmt.Sprintf("%d %s", int(sec)+1, sectionNames[sec])
		if sec == active {
			tabs = append(tabs, tabActive.Render(label))
		} else {
			tabs = append(tabs, tabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderTabsBar(active section, totalWidth int) string {
	tabs := renderTabs(active)
	logo := logoStyle.Render("┌────┐\n│ Kn │\n└────┘")
	if totalWidth <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, tabs, logo)
	}

	logoWidth := lipgloss.Width(logo)
	leftWidth := max(totalWidth-logoWidth, 0)
	left := lipgloss.NewStyle().Width(leftWidth).MaxWidth(leftWidth).Render(tabs)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, logo)
}

func centerText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(value)
}
