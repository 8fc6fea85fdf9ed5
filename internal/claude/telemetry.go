package claude

import (
	"time"

	"github.com/quotaglass/quotaglass/internal/usage"
)

// Rolling window lengths for the Claude rate limits, in minutes.
const (
	PrimaryWindowMinutes   = 300
	SecondaryWindowMinutes = 10080
)

// Telemetry collects one round of raw readings from the usage sources.
// Nil fields mean the source did not report; they stay nil through Status.
type Telemetry struct {
	CapturedAt time.Time

	ContextUsedTokens  *int64
	ContextLimitTokens *int64

	FiveHourUtilization *float64
	FiveHourResetsAt    *time.Time

	SevenDayUtilization *float64
	SevenDayResetsAt    *time.Time
}

// Status maps the telemetry onto the provider status. The five-hour window
// becomes the primary limit and the seven-day window the secondary one; the
// standard window lengths are attached whenever the matching utilization is
// present.
func (t Telemetry) Status() usage.Status {
	s := usage.Status{
		UpdatedAt:          t.CapturedAt,
		ContextUsedTokens:  t.ContextUsedTokens,
		ContextLimitTokens: t.ContextLimitTokens,
	}
	if t.FiveHourUtilization != nil {
		s.PrimaryUsedPercent = t.FiveHourUtilization
		m := PrimaryWindowMinutes
		s.PrimaryWindowMinutes = &m
		s.PrimaryResetAt = t.FiveHourResetsAt
	}
	if t.SevenDayUtilization != nil {
		s.SecondaryUsedPercent = t.SevenDayUtilization
		m := SecondaryWindowMinutes
		s.SecondaryWindowMinutes = &m
		s.SecondaryResetAt = t.SevenDayResetsAt
	}
	return s
}
