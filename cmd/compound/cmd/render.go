package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(16)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	sessionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func typeStyle(typ string) lipgloss.Style {
	switch {
	case strings.HasPrefix(typ, "tool."):
		return toolStyle
	case strings.HasPrefix(typ, "session."):
		return sessionStyle
	case strings.HasPrefix(typ, "command."):
		return commandStyle
	default:
		return lipgloss.NewStyle()
	}
}

// renderObservation formats one record as a single line.
func renderObservation(obs core.Observation) string {
	parts := []string{
		dimStyle.Render(obs.TS.Local().Format("15:04:05")),
		typeStyle(obs.Type).Render(obs.Type),
	}
	if s := obs.Session(); s != "" {
		parts = append(parts, dimStyle.Render(s))
	}
	if obs.Tool != "" {
		parts = append(parts, obs.Tool)
	}
	if obs.OK != nil {
		if *obs.OK {
			parts = append(parts, okStyle.Render("ok"))
		} else {
			parts = append(parts, failStyle.Render("failed"))
		}
	}
	if obs.Command != "" {
		parts = append(parts, "/"+obs.Command)
	}
	if obs.Summary != "" {
		parts = append(parts, obs.Summary)
	}
	return strings.Join(parts, " ")
}

// renderField formats a "label value" row.
func renderField(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

func renderTitle(title string) string {
	return titleStyle.Render(title)
}
