package usage

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter configuration is built once and shared; the printer and option
// sets are never mutated after init, so concurrent reads are safe. Token
// counts drop trailing zeros ("1M"), durations keep them ("1.0h").
var (
	printer = message.NewPrinter(language.English)

	percentOpts = []number.Option{
		number.MaxFractionDigits(0),
	}
	tokenOpts = [2][]number.Option{
		{number.MaxFractionDigits(0)},
		{number.MaxFractionDigits(1)},
	}
	durationOpts = [2][]number.Option{
		{number.MinFractionDigits(0), number.MaxFractionDigits(0)},
		{number.MinFractionDigits(1), number.MaxFractionDigits(1)},
	}
)

// FormatTokenCount renders a token count compactly: millions as "M",
// thousands as "K", smaller values as a plain grouped integer. Scaled values
// carry at most one fractional digit while below 10 (1234567 -> "1.2M",
// 1000000 -> "1M", 12345678 -> "12M"). Sign survives scaling.
func FormatTokenCount(v int64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return formatToken(float64(v)/1_000_000) + "M"
	case abs >= 1_000:
		return formatToken(float64(v)/1_000) + "K"
	default:
		return formatToken(float64(v))
	}
}

// FormatWindowMinutes renders a minute count in the largest sensible unit:
// days from 1440 up, hours from 60 up, whole minutes below that. Day and
// hour values keep exactly one fractional digit while below 10 ("3.5d",
// "1.0h", "14h", "42m").
func FormatWindowMinutes(minutes float64) string {
	switch {
	case minutes >= 1440:
		return formatDuration(minutes/1440) + "d"
	case minutes >= 60:
		return formatDuration(minutes/60) + "h"
	default:
		s := printer.Sprint(number.Decimal(minutes, durationOpts[0]...))
		if s == "" {
			s = fmt.Sprintf("%.0f", minutes)
		}
		return s + "m"
	}
}

func formatToken(v float64) string {
	digits := 0
	if math.Abs(v) < 10 {
		digits = 1
	}
	s := printer.Sprint(number.Decimal(v, tokenOpts[digits]...))
	if s == "" {
		// Fixed-pattern fallback with the same rounding; trailing zeros are
		// trimmed to match the max-fraction-digits behavior above.
		s = strings.TrimSuffix(fmt.Sprintf("%.*f", digits, v), ".0")
	}
	return s
}

func formatDuration(v float64) string {
	digits := 0
	if math.Abs(v) < 10 {
		digits = 1
	}
	s := printer.Sprint(number.Decimal(v, durationOpts[digits]...))
	if s == "" {
		s = fmt.Sprintf("%.*f", digits, v)
	}
	return s
}

// FormatUtilization renders a 0-100 utilization as a whole percentage
// ("42.5" -> "42%").
func FormatUtilization(pct float64) string {
	return formatPercent(pct / 100)
}

// formatPercent renders a 0-1 ratio as a whole percentage ("0.42" -> "42%").
func formatPercent(ratio float64) string {
	s := printer.Sprint(number.Percent(ratio, percentOpts...))
	if s == "" {
		s = fmt.Sprintf("%.0f%%", ratio*100)
	}
	return s
}
