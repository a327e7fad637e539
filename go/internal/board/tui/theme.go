package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the board's color scheme.
type Theme struct {
	Title     lipgloss.Style
	Stats     lipgloss.Style
	Row       lipgloss.Style
	Selected  lipgloss.Style
	Pending   lipgloss.Style
	Scanned   lipgloss.Style
	Empty     lipgloss.Style
	Expired   lipgloss.Style
	Muted     lipgloss.Style
	Panel     lipgloss.Style
	Label     lipgloss.Style
	Banner    lipgloss.Style
	Button    lipgloss.Style
	Disabled  lipgloss.Style
	ToastOK   lipgloss.Style
	ToastErr  lipgloss.Style
	Switching lipgloss.Style
}

var DefaultTheme = Theme{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	Stats:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	Row:       lipgloss.NewStyle().PaddingLeft(1),
	Selected:  lipgloss.NewStyle().PaddingLeft(1).Reverse(true),
	Pending:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	Scanned:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	Empty:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Expired:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(12),
	Banner:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	Button:    lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("39")).Foreground(lipgloss.Color("0")),
	Disabled:  lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("238")).Foreground(lipgloss.Color("244")),
	ToastOK:   lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("42")).Foreground(lipgloss.Color("0")),
	ToastErr:  lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("196")).Foreground(lipgloss.Color("15")),
	Switching: lipgloss.NewStyle().Faint(true),
}
