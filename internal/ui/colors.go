package ui

import "github.com/charmbracelet/lipgloss"

// Colors used across the views.
const (
	roseColor  = lipgloss.Color("#B5838D")
	greenColor = lipgloss.Color("#04B575")
	redColor   = lipgloss.Color("#E22134")
	amberColor = lipgloss.Color("#FFA500")
	greyColor  = lipgloss.Color("#626262")
)

var styles = newTheme(roseColor, greenColor, redColor, amberColor, greyColor)

// theme holds one style per role a piece of text can play in a view.
type theme struct {
	title lipgloss.Style // view headings, also the spinner
	ok    lipgloss.Style // successful outcomes
	err   lipgloss.Style // failures and error details
	warn  lipgloss.Style // dry-run notes and unmatched songs
	help  lipgloss.Style // secondary text
	box   lipgloss.Style // framed result panels
}

func newTheme(accent, success, failure, warning, muted lipgloss.Color) theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return theme{
		title: fg(accent).Bold(true).MarginBottom(1),
		ok:    fg(success).Bold(true),
		err:   fg(failure).Bold(true),
		warn:  fg(warning),
		help:  fg(muted).Italic(true),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
	}
}
