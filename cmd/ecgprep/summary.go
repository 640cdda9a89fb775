package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ecgprep/internal/converter"
	"ecgprep/pkg/contracts/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// maxListedFailures caps the failed rows shown in the summary.
const maxListedFailures = 10

func printSummary(out io.Writer, result *converter.Result) {
	fmt.Fprintln(out, renderSummary(result))
}

func renderSummary(result *converter.Result) string {
	report := result.Report
	rows := []string{
		titleStyle.Render("Conversion " + report.RunID),
		line("output", report.OutputDir),
		line("total", fmt.Sprint(report.Summary.Total)),
		line("converted", okStyle.Render(fmt.Sprint(report.Summary.Converted))),
		line("failed", failureCount(report.Summary.Failed)),
		line("on disk", fmt.Sprint(result.StoredFiles)),
		line("duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()),
	}
	for _, f := range result.ReportFiles {
		rows = append(rows, line("report", f))
	}

	listed := 0
	for _, r := range report.Results {
		if r.Status != domain.StatusFailed {
			continue
		}
		if listed == maxListedFailures {
			rows = append(rows, failStyle.Render(fmt.Sprintf("... %d more", report.Summary.Failed-listed)))
			break
		}
		rows = append(rows, failStyle.Render(fmt.Sprintf("%s: %s", r.ID, r.ErrorMsg)))
		listed++
	}

	return boxStyle.Render(strings.Join(rows, "\n"))
}

func line(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func failureCount(n int) string {
	if n == 0 {
		return okStyle.Render("0")
	}
	return failStyle.Render(fmt.Sprint(n))
}
