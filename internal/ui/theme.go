package ui

import "github.com/gdamore/tcell/v2"

// Theme colors for the TUI.
var (
	ColorBackground = tcell.NewHexColor(0x1e1e2e)
	ColorText       = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted  = tcell.NewHexColor(0x6c7086)
	ColorSuccess    = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning    = tcell.NewHexColor(0xf9e2af) // yellow
	ColorError      = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder     = tcell.NewHexColor(0x45475a)
)

// SeverityTcell maps a 0-1 utilization fraction to a theme color.
func SeverityTcell(frac float64) tcell.Color {
	switch {
	case frac >= 0.8:
		return ColorError
	case frac >= 0.6:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
