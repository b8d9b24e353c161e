package tui

import "github.com/charmbracelet/lipgloss"

type palette struct {
	primary lipgloss.Color
	text    lipgloss.Color
	muted   lipgloss.Color
	surface lipgloss.Color
	success lipgloss.Color
	danger  lipgloss.Color
}

var (
	lightPalette = palette{
		primary: lipgloss.Color("#2563EB"),
		text:    lipgloss.Color("#1F2937"),
		muted:   lipgloss.Color("#6B7280"),
		surface: lipgloss.Color("#E5E7EB"),
		success: lipgloss.Color("#16A34A"),
		danger:  lipgloss.Color("#DC2626"),
	}
	darkPalette = palette{
		primary: lipgloss.Color("#60A5FA"),
		text:    lipgloss.Color("#E5E7EB"),
		muted:   lipgloss.Color("#9CA3AF"),
		surface: lipgloss.Color("#1F2937"),
		success: lipgloss.Color("#22C55E"),
		danger:  lipgloss.Color("#F87171"),
	}
)

type styles struct {
	title     lipgloss.Style
	heading   lipgloss.Style
	text      lipgloss.Style
	muted     lipgloss.Style
	navActive lipgloss.Style
	navItem   lipgloss.Style
	card      lipgloss.Style
	selected  lipgloss.Style
	label     lipgloss.Style
	errorText lipgloss.Style
	toast     lipgloss.Style
	alert     lipgloss.Style
	chat      lipgloss.Style
	userMsg   lipgloss.Style
	botMsg    lipgloss.Style
	help      lipgloss.Style
}

func newStyles(dark bool) styles {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(p.primary),
		heading:   lipgloss.NewStyle().Bold(true).Foreground(p.text).MarginTop(1),
		text:      lipgloss.NewStyle().Foreground(p.text),
		muted:     lipgloss.NewStyle().Foreground(p.muted),
		navActive: lipgloss.NewStyle().Bold(true).Foreground(p.primary).Underline(true).Padding(0, 1),
		navItem:   lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1),
		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.surface).Padding(0, 1),
		selected:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.primary).Padding(0, 1),
		label:     lipgloss.NewStyle().Bold(true).Foreground(p.text),
		errorText: lipgloss.NewStyle().Foreground(p.danger),
		toast:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(p.success).Padding(0, 2),
		alert:     lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(p.danger).Padding(1, 2),
		chat:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.primary).Padding(0, 1),
		userMsg:   lipgloss.NewStyle().Foreground(p.primary).Align(lipgloss.Right),
		botMsg:    lipgloss.NewStyle().Foreground(p.text),
		help:      lipgloss.NewStyle().Foreground(p.muted).MarginTop(1),
	}
}
