package db

import (
	"time"

	"github.com/quotaglass/quotaglass/internal/usage"
)

// UsageSnapshot is one stored capture of the provider status. Pointer fields
// map to NULL columns so an absent upstream reading round-trips as absent.
type UsageSnapshot struct {
	ID   int64
	TsMs int64

	ContextUsedTokens  *int64
	ContextLimitTokens *int64

	FiveHourUtil     *float64
	FiveHourWindow   *int
	FiveHourResetsMs *int64 // Unix ms

	SevenDayUtil     *float64
	SevenDayWindow   *int
	SevenDayResetsMs *int64 // Unix ms
}

// FromStatus converts a status capture into its storage row.
func FromStatus(s usage.Status) UsageSnapshot {
	return UsageSnapshot{
		TsMs:               s.UpdatedAt.UnixMilli(),
		ContextUsedTokens:  s.ContextUsedTokens,
		ContextLimitTokens: s.ContextLimitTokens,
		FiveHourUtil:       s.PrimaryUsedPercent,
		FiveHourWindow:     s.PrimaryWindowMinutes,
		FiveHourResetsMs:   timeToMs(s.PrimaryResetAt),
		SevenDayUtil:       s.SecondaryUsedPercent,
		SevenDayWindow:     s.SecondaryWindowMinutes,
		SevenDayResetsMs:   timeToMs(s.SecondaryResetAt),
	}
}

// Status reconstructs the status capture this row was stored from.
func (u UsageSnapshot) Status() usage.Status {
	return usage.Status{
		UpdatedAt:              time.UnixMilli(u.TsMs).UTC(),
		ContextUsedTokens:      u.ContextUsedTokens,
		ContextLimitTokens:     u.ContextLimitTokens,
		PrimaryUsedPercent:     u.FiveHourUtil,
		PrimaryWindowMinutes:   u.FiveHourWindow,
		PrimaryResetAt:         msToTime(u.FiveHourResetsMs),
		SecondaryUsedPercent:   u.SevenDayUtil,
		SecondaryWindowMinutes: u.SevenDayWindow,
		SecondaryResetAt:       msToTime(u.SevenDayResetsMs),
	}
}

func timeToMs(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func msToTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

// Account is a web dashboard login.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken is a stored web session token; tokens rotate on use.
type RefreshToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
