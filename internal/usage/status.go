// Package usage holds the point-in-time quota status for the built-in Claude
// provider and derives display-ready text and progress values from it. All
// derivation is pure: missing inputs propagate as absence, never as errors.
package usage

import (
	"time"

	"github.com/quotaglass/quotaglass/internal/snapshot"
)

const (
	providerID    = "claude"
	providerTitle = "Claude"

	labelContext  = "Context window"
	labelFiveHour = "5-hour limit"
	labelWeekly   = "Weekly limit"
)

// Status is an immutable capture of raw usage counters and percentages.
// Nil fields mean the upstream source did not report a value; zero is a real
// reading and must stay distinguishable from absence. Percent fields are on
// a 0-100 scale as reported upstream and are not clamped at construction.
type Status struct {
	UpdatedAt time.Time

	ContextUsedTokens  *int64
	ContextLimitTokens *int64

	PrimaryUsedPercent   *float64
	PrimaryWindowMinutes *int
	PrimaryResetAt       *time.Time

	SecondaryUsedPercent   *float64
	SecondaryWindowMinutes *int
	SecondaryResetAt       *time.Time
}

// ContextUsedPercent returns used/limit as a ratio. The ratio is not clamped;
// values above 1 mean upstream reported usage beyond the limit.
func (s Status) ContextUsedPercent() (float64, bool) {
	if s.ContextUsedTokens == nil || s.ContextLimitTokens == nil || *s.ContextLimitTokens <= 0 {
		return 0, false
	}
	return float64(*s.ContextUsedTokens) / float64(*s.ContextLimitTokens), true
}

// ContextUsageText returns e.g. "500K used / 1M total".
func (s Status) ContextUsageText() (string, bool) {
	if s.ContextUsedTokens == nil || s.ContextLimitTokens == nil {
		return "", false
	}
	return FormatTokenCount(*s.ContextUsedTokens) + " used / " +
		FormatTokenCount(*s.ContextLimitTokens) + " total", true
}

// ContextPercentText returns the context ratio as a whole percentage.
func (s Status) ContextPercentText() (string, bool) {
	ratio, ok := s.ContextUsedPercent()
	if !ok {
		return "", false
	}
	return formatPercent(ratio), true
}

func (s Status) PrimaryPercentText() (string, bool) {
	return windowPercentText(s.PrimaryUsedPercent)
}

func (s Status) SecondaryPercentText() (string, bool) {
	return windowPercentText(s.SecondaryUsedPercent)
}

// PrimaryUsageText returns e.g. "2.9h remaining" for the 5-hour window.
func (s Status) PrimaryUsageText() (string, bool) {
	return windowUsageText(s.PrimaryUsedPercent, s.PrimaryWindowMinutes)
}

// SecondaryUsageText returns the remaining-time text for the weekly window.
func (s Status) SecondaryUsageText() (string, bool) {
	return windowUsageText(s.SecondaryUsedPercent, s.SecondaryWindowMinutes)
}

// ContextProgress is the context ratio verbatim.
func (s Status) ContextProgress() (float64, bool) {
	return s.ContextUsedPercent()
}

// PrimaryProgress normalizes the 0-100 window percent to a 0-1 fraction.
// Overshoot (>1) is passed through deliberately; renderers clamp for display.
func (s Status) PrimaryProgress() (float64, bool) {
	return windowProgress(s.PrimaryUsedPercent)
}

// SecondaryProgress behaves like PrimaryProgress for the weekly window.
func (s Status) SecondaryProgress() (float64, bool) {
	return windowProgress(s.SecondaryUsedPercent)
}

// validResetAt suppresses reset timestamps that are not strictly in the
// future relative to the capture time; an elapsed reset is meaningless.
func (s Status) validResetAt(t *time.Time) *time.Time {
	if t == nil || !t.After(s.UpdatedAt) {
		return nil
	}
	u := *t
	return &u
}

// ProviderSnapshot assembles the fixed three-metric provider snapshot in the
// order [context, five-hour, weekly]. This status type never represents a
// loading or error provider, so availability is always Ready and origin is
// always the built-in provider.
func (s Status) ProviderSnapshot() snapshot.Provider {
	return snapshot.Provider{
		ProviderID:   providerID,
		Title:        providerTitle,
		Availability: snapshot.Ready,
		Metrics: []snapshot.Metric{
			s.contextMetric(),
			s.windowMetric(snapshot.KindFiveHour, labelFiveHour,
				s.PrimaryUsedPercent, s.PrimaryWindowMinutes, s.PrimaryResetAt),
			s.windowMetric(snapshot.KindWeekly, labelWeekly,
				s.SecondaryUsedPercent, s.SecondaryWindowMinutes, s.SecondaryResetAt),
		},
		UpdatedAt: s.UpdatedAt,
		Origin:    snapshot.OriginBuiltIn,
	}
}

func (s Status) contextMetric() snapshot.Metric {
	m := snapshot.Metric{Kind: snapshot.KindContext, Label: labelContext}
	if text, ok := s.ContextUsageText(); ok {
		m.UsageText = text
	}
	if text, ok := s.ContextPercentText(); ok {
		m.PercentText = text
	}
	if p, ok := s.ContextProgress(); ok {
		m.Progress = &p
	}
	return m
}

func (s Status) windowMetric(kind snapshot.MetricKind, label string, pct *float64, minutes *int, resetAt *time.Time) snapshot.Metric {
	m := snapshot.Metric{Kind: kind, Label: label}
	if text, ok := windowUsageText(pct, minutes); ok {
		m.UsageText = text
	}
	if text, ok := windowPercentText(pct); ok {
		m.PercentText = text
	}
	if p, ok := windowProgress(pct); ok {
		m.Progress = &p
	}
	m.ResetAt = s.validResetAt(resetAt)
	if minutes != nil {
		w := *minutes
		m.FallbackWindowMinutes = &w
	}
	return m
}

// Equal compares the nine raw fields structurally. Derived values are pure
// functions of the raw fields and are excluded.
func (s Status) Equal(o Status) bool {
	return s.UpdatedAt.Equal(o.UpdatedAt) &&
		eqInt64(s.ContextUsedTokens, o.ContextUsedTokens) &&
		eqInt64(s.ContextLimitTokens, o.ContextLimitTokens) &&
		eqFloat(s.PrimaryUsedPercent, o.PrimaryUsedPercent) &&
		eqInt(s.PrimaryWindowMinutes, o.PrimaryWindowMinutes) &&
		eqTime(s.PrimaryResetAt, o.PrimaryResetAt) &&
		eqFloat(s.SecondaryUsedPercent, o.SecondaryUsedPercent) &&
		eqInt(s.SecondaryWindowMinutes, o.SecondaryWindowMinutes) &&
		eqTime(s.SecondaryResetAt, o.SecondaryResetAt)
}

func windowPercentText(pct *float64) (string, bool) {
	if pct == nil {
		return "", false
	}
	// Stored percents are 0-100; the percent formatter takes a ratio.
	return formatPercent(*pct / 100), true
}

// windowUsageText computes the remaining time in a rolling window. The
// percent is clamped to [0,100] first so remaining time stays in [0, window]
// even for out-of-range upstream values.
func windowUsageText(pct *float64, minutes *int) (string, bool) {
	if pct == nil || minutes == nil {
		return "", false
	}
	p := *pct
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	used := p / 100 * float64(*minutes)
	remaining := float64(*minutes) - used
	if remaining < 0 {
		remaining = 0
	}
	return FormatWindowMinutes(remaining) + " remaining", true
}

func windowProgress(pct *float64) (float64, bool) {
	if pct == nil {
		return 0, false
	}
	return *pct / 100, true
}

func eqInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
