package report

import (
	"strconv"
	"strings"

	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD479"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)
	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
	failedStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#FF6B6B"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6BCB77"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD479"))
)

// `Render()` returns the summary as a styled table for terminals.
func Render(rep *orchestrator.Report) string {
	headers := []string{"stage"}
	for _, o := range orchestrator.Outcomes {
		headers = append(headers, o.String())
	}
	failedCol := len(headers) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == failedCol:
				return failedStyle
			default:
				return cellStyle
			}
		})
	for _, s := range orchestrator.Stages {
		row := []string{s.String()}
		for _, o := range orchestrator.Outcomes {
			row = append(row, strconv.Itoa(rep.Count(s, o)))
		}
		t.Row(row...)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(
		"tierarch " + rep.Direction.String() + " " + rep.Op.String(),
	))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")

	for _, sec := range []struct {
		title   string
		outcome orchestrator.Outcome
		style   lipgloss.Style
	}{
		{"failed", orchestrator.Failed, warnStyle},
		{"skipped", orchestrator.SkippedByUserChoice, skipStyle},
	} {
		for _, s := range orchestrator.Stages {
			if ids := rep.Services(s, sec.outcome); len(ids) > 0 {
				b.WriteString(sec.style.Render(
					sec.title + " " + s.String() + ": " +
						strings.Join(ids, " "),
				))
				b.WriteString("\n")
			}
		}
	}
	b.WriteString(okStyle.Render(
		"bytes saved by compression: " + FormatGiB(rep.BytesSaved),
	))
	b.WriteString("\n")
	if rep.Aborted {
		b.WriteString(warnStyle.Render("run aborted by user"))
		b.WriteString("\n")
	}
	return b.String()
}
