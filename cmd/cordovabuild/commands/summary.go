package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func outcomeStyle(o models.RunOutcome) lipgloss.Style {
	switch o {
	case models.OutcomeCompleted:
		return okStyle
	case models.OutcomeCanceled:
		return warnStyle
	default:
		return failStyle
	}
}

func stageMark(r models.StageResult) string {
	switch r {
	case models.StageResultSuccess:
		return okStyle.Render("ok")
	case models.StageResultCanceled:
		return warnStyle.Render("canceled")
	default:
		return failStyle.Render("failed")
	}
}

// RenderSummary renders the end-of-run report for the terminal.
func RenderSummary(r *models.BuildReport) string {
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("cordovabuild "+r.Mode),
		"  ",
		outcomeStyle(r.Outcome).Render(string(r.Outcome)),
		"  ",
		dimStyle.Render(fmt.Sprintf("run %s in %s", r.RunID, r.Duration().Truncate(time.Millisecond))),
	)

	lines := []string{header}
	for _, s := range r.Stages {
		line := fmt.Sprintf("  %-18s %s %s", s.Name, stageMark(s.Result), dimStyle.Render(s.Duration.Truncate(time.Millisecond).String()))
		if s.Err != nil {
			line += "\n    " + failStyle.Render(s.Err.Error())
		}
		lines = append(lines, line)
	}
	if len(r.Plugins) > 0 {
		lines = append(lines, titleStyle.Render("plugins"))
		for _, p := range r.Plugins {
			lines = append(lines, "  "+p)
		}
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("warnings (%d)", len(r.Warnings))))
		for _, w := range r.Warnings {
			lines = append(lines, "  "+w)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderCacheEntries renders the plugin cache listing.
func RenderCacheEntries(entries []loader.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("plugin cache is empty")
	}
	header := titleStyle.Render(fmt.Sprintf("%-32s │ %-30s │ %-10s │ %-5s │ %s", "HASH", "ID", "VERSION", "VALID", "PATH"))
	rows := []string{header}
	for _, e := range entries {
		valid := okStyle.Render("yes  ")
		if !e.Valid {
			valid = failStyle.Render("no   ")
		}
		rows = append(rows, fmt.Sprintf("%-32s │ %-30s │ %-10s │ %s │ %s", e.Hash, e.ID, e.Version, valid, e.Path))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
