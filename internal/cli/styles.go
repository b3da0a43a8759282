package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("82")
	colorWarning = lipgloss.Color("214")
	colorMuted   = lipgloss.Color("245")
	colorAccent  = lipgloss.Color("212")
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(colorPrimary)
	scoreStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	locatorStyle = lipgloss.NewStyle().Foreground(colorMuted)
	contentStyle = lipgloss.NewStyle().PaddingLeft(2)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	answerStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(22)
	dividerStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func rule(width int) string {
	return dividerStyle.Render(strings.Repeat("─", width))
}
