package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kiln-build/kiln/internal/models"
)

var (
	jobColumnTitles     = []string{"ID", "Name", "Command", "Status", "Created", "Updated"}
	jobColumnWeights    = []int{1, 3, 4, 2, 2, 2}
	recipeColumnTitles  = []string{"Recipe"}
	recipeColumnWeights = []int{1}
)

func jobsToRows(jobs models.Jobs, spinnerFrame string) []table.Row {
	rows := make([]table.Row, len(jobs))
	for i, job := range jobs {
		rows[i] = table.Row{
			strconv.FormatUint(job.ID, 10),
			job.Name,
			job.Command,
			formatStatus(job.Status, spinnerFrame),
			relativeTime(job.CreatedAt),
			relativeTime(job.UpdatedAt),
		}
	}
	return rows
}

func recipesToRows(recipes []string) []table.Row {
	rows := make([]table.Row, len(recipes))
	for i, name := range recipes {
		rows[i] = table.Row{name}
	}
	return rows
}

func formatStatus(status models.Status, spinnerFrame string) string {
	switch status {
	case models.StatusRunning:
		if spinnerFrame != "" {
			return fmt.Sprintf("%s Running", spinnerFrame)
		}
		return "Running"
	case models.StatusPending:
		return "… Pending"
	case models.StatusSuccess:
		return "✅ Success"
	case models.StatusFailed:
		return "❌ Failed"
	default:
		return "-"
	}
}

func createTable(titles []string, widths []int, focused bool) table.Model {
	columns := buildColumns(titles, widths)
	tbl := table.New(
		table.WithColumns(columns),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true)

	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("202")).
		Bold(false)

	tbl.SetStyles(styles)
	if focused {
		tbl.Focus()
	}
	return tbl
}

func buildColumns(titles []string, widths []int) []table.Column {
	columns := make([]table.Column, len(titles))
	for i, title := range titles {
		width := 12
		if i < len(widths) && widths[i] > 0 {
			width = widths[i]
		}
		columns[i] = table.Column{Title: title, Width: width}
	}

	return columns
}

// distributeWidths splits total across columns by weight. One
// character is reserved for each gap between columns.
func distributeWidths(total int, weights []int) []int {
	if len(weights) == 0 {
		return nil
	}

	const minWidth = 6

	if total <= 0 {
		total = len(weights) * 12
	}

	contentTotal := max(total-(len(weights)-1), len(weights)*minWidth)

	sum := 0
	for _, w := range weights {
		sum += w
	}

	widths := make([]int, len(weights))
	remaining := contentTotal

	for i, weight := range weights {
		if i == len(weights)-1 {
			widths[i] = max(remaining, minWidth)
			break
		}

		portion := max(weight*contentTotal/sum, minWidth)
		minRemaining := minWidth * (len(weights) - i - 1)
		if remaining-portion < minRemaining {
			portion = max(remaining-minRemaining, minWidth)
		}

		widths[i] = portion
		remaining -= portion
	}

	return widths
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := max(time.Since(t), 0)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
