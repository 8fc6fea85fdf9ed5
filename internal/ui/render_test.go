package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/quotaglass/quotaglass/internal/snapshot"
)

func TestSeverityColor(t *testing.T) {
	cases := []struct {
		frac float64
		want string
	}{
		{0, "green"},
		{0.59, "green"},
		{0.6, "yellow"},
		{0.79, "yellow"},
		{0.8, "red"},
		{1.5, "red"},
	}
	for _, tc := range cases {
		if got := severityColor(tc.frac); got != tc.want {
			t.Errorf("severityColor(%v): got %q want %q", tc.frac, got, tc.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	full := progressBar(1.0, 10)
	if strings.Count(full, "█") != 10 || strings.Contains(full, "░") {
		t.Errorf("full bar wrong: %q", full)
	}

	empty := progressBar(0, 10)
	if strings.Count(empty, "░") != 10 {
		t.Errorf("empty bar wrong: %q", empty)
	}

	half := progressBar(0.5, 10)
	if strings.Count(half, "█") != 5 || strings.Count(half, "░") != 5 {
		t.Errorf("half bar wrong: %q", half)
	}

	// Overshoot fills the bar but never overflows the width.
	over := progressBar(1.4, 10)
	if strings.Count(over, "█") != 10 {
		t.Errorf("overshoot bar wrong: %q", over)
	}
	if !strings.Contains(over, "[red]") {
		t.Errorf("overshoot should be red: %q", over)
	}

	neg := progressBar(-0.5, 10)
	if strings.Count(neg, "░") != 10 {
		t.Errorf("negative bar wrong: %q", neg)
	}
}

func TestMetricLine(t *testing.T) {
	p := 0.42
	m := snapshot.Metric{
		Kind:        snapshot.KindFiveHour,
		Label:       "5-hour limit",
		PercentText: "42%",
		UsageText:   "2.9h remaining",
		Progress:    &p,
	}
	line := metricLine(m, 10)
	if !strings.Contains(line, "42%") || !strings.Contains(line, "2.9h remaining") {
		t.Errorf("metric line missing text: %q", line)
	}
	if strings.Contains(line, "OVER") {
		t.Errorf("no overshoot marker expected: %q", line)
	}

	over := 1.2
	m.Progress = &over
	m.PercentText = "120%"
	line = metricLine(m, 10)
	if !strings.Contains(line, "(OVER)") {
		t.Errorf("expected overshoot marker: %q", line)
	}
}

func TestSparkline(t *testing.T) {
	got := sparkline([]float64{0, 0.5, 1})
	runes := []rune(got)
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if runes[0] != '▁' {
		t.Errorf("low value: got %q", runes[0])
	}
	if runes[2] != '█' {
		t.Errorf("high value: got %q", runes[2])
	}

	// Out-of-range values clamp instead of panicking.
	got = sparkline([]float64{-1, 2})
	runes = []rune(got)
	if runes[0] != '▁' || runes[1] != '█' {
		t.Errorf("clamping wrong: %q", got)
	}
}

func TestFormatResetTime(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-time.Minute), "now"},
		{now.Add(30 * time.Minute), "in 30m"},
		{now.Add(90 * time.Minute), "in 1h30m"},
		{now.Add(2*time.Hour + 5*time.Minute), "in 2h05m"},
		{now.Add(50 * time.Hour), "in 2d"},
	}
	for _, tc := range cases {
		if got := formatResetTime(tc.at, now); got != tc.want {
			t.Errorf("formatResetTime(%v): got %q want %q", tc.at, got, tc.want)
		}
	}
}
