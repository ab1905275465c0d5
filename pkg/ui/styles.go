package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Logo is printed at the start of interactive runs
const Logo = `
  ╦╔═╗╦  ╦╦╔═╗╦╔═╗╔╗╔
  ║║ ╦╚╗╔╝║╚═╗║║ ║║║║
  ╩╚═╝ ╚╝ ╩╚═╝╩╚═╝╝╚╝
  instagram media + vision annotation
`

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorMagenta = lipgloss.Color("#FF00FF")
	colorGreen   = lipgloss.Color("#39FF14")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorOrange  = lipgloss.Color("#FF6700")
	colorRed     = lipgloss.Color("#FF0000")
	colorDim     = lipgloss.Color("#B0B0B0")
)

// Styles is the set of lipgloss styles used for terminal output
type Styles struct {
	Logo    lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Stage   lipgloss.Style
	Dim     lipgloss.Style
	Panel   lipgloss.Style
	Bar     lipgloss.Style
	Empty   lipgloss.Style
}

// NewStyles returns the colored palette, or unstyled text when color is false
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Logo:    plain,
			Label:   plain,
			Value:   plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
			Stage:   plain,
			Dim:     plain,
			Panel:   plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
			Bar:     plain,
			Empty:   plain,
		}
	}

	return Styles{
		Logo:    lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
		Label:   lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
		Value:   lipgloss.NewStyle().Foreground(colorYellow),
		Success: lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colorOrange).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		Stage:   lipgloss.NewStyle().Foreground(colorMagenta),
		Dim:     lipgloss.NewStyle().Foreground(colorDim).Faint(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMagenta).
			Padding(0, 2),
		Bar:   lipgloss.NewStyle().Foreground(colorGreen),
		Empty: lipgloss.NewStyle().Foreground(lipgloss.Color("#333333")),
	}
}
