package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	urlStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// banner describes where the session is served. Styling is only applied on
// terminals.
func banner(version, url string, watched []string, styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	lines := []string{
		style(titleStyle, "sktalk "+version),
		style(labelStyle, "open ") + style(urlStyle, url),
	}
	if len(watched) > 0 {
		lines = append(lines, style(labelStyle, "watch ")+strings.Join(watched, ", "))
	}

	body := strings.Join(lines, "\n")
	if !styled {
		return body
	}
	return boxStyle.Render(body)
}
