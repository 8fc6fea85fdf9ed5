package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/quotaglass/quotaglass/internal/snapshot"
)

const sparkChars = "▁▂▃▄▅▆▇█"

// severityColor picks a tview color tag for a 0-1 utilization fraction.
func severityColor(frac float64) string {
	switch {
	case frac >= 0.8:
		return "red"
	case frac >= 0.6:
		return "yellow"
	default:
		return "green"
	}
}

// progressBar renders a text progress bar for a fraction. Overshoot beyond 1
// fills the bar completely; the percent text carries the real value.
func progressBar(frac float64, width int) string {
	display := frac
	if display < 0 {
		display = 0
	}
	if display > 1 {
		display = 1
	}
	filled := int(display * float64(width))
	empty := width - filled
	return fmt.Sprintf("[%s][%s%s][-]", severityColor(frac),
		strings.Repeat("█", filled), strings.Repeat("░", empty))
}

// metricLine renders one metric as "bar  percent" with optional usage text.
func metricLine(m snapshot.Metric, width int) string {
	var sb strings.Builder
	frac := 0.0
	if m.Progress != nil {
		frac = *m.Progress
	}
	sb.WriteString(progressBar(frac, width))
	if m.PercentText != "" {
		over := ""
		if m.Progress != nil && *m.Progress > 1 {
			over = " (OVER)"
		}
		sb.WriteString(fmt.Sprintf("  [%s]%s%s[-]", severityColor(frac), m.PercentText, over))
	}
	if m.UsageText != "" {
		sb.WriteString("  [dim]" + m.UsageText + "[-]")
	}
	return sb.String()
}

// sparkline renders oldest-to-newest fractions as block characters.
func sparkline(fracs []float64) string {
	runes := []rune(sparkChars)
	var sb strings.Builder
	for _, v := range fracs {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		idx := int(v * float64(len(runes)-1))
		sb.WriteRune(runes[idx])
	}
	return sb.String()
}

// formatResetTime renders a countdown to the reset timestamp.
func formatResetTime(t time.Time, now time.Time) string {
	d := t.Sub(now)
	if d < 0 {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("in %dh%02dm", h, m)
	}
	return fmt.Sprintf("in %dd", int(d.Hours()/24))
}
