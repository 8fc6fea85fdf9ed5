// Package snapshot defines the provider-agnostic shapes a usage source
// renders into. A Provider carries display-ready metrics only; all derivation
// happens upstream.
package snapshot

import "time"

// MetricKind identifies one of the fixed quota metrics a provider reports.
type MetricKind string

const (
	KindContext  MetricKind = "context"
	KindFiveHour MetricKind = "five_hour"
	KindWeekly   MetricKind = "weekly"
)

// Availability describes whether a provider's data is usable.
type Availability string

const (
	Ready   Availability = "ready"
	Loading Availability = "loading"
	Errored Availability = "error"
)

// Origin tags where a provider snapshot came from.
type Origin string

const (
	OriginBuiltIn Origin = "built-in"
	OriginPlugin  Origin = "plugin"
)

// Metric is a single display-ready quota metric. Empty strings and nil
// pointers mean the underlying data was not available; renderers skip those
// parts. Progress is a fraction and may exceed 1 when upstream reports
// usage beyond the limit.
type Metric struct {
	Kind        MetricKind `json:"kind"`
	Label       string     `json:"label"`
	UsageText   string     `json:"usage_text,omitempty"`
	PercentText string     `json:"percent_text,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`

	// FallbackWindowMinutes is the raw window length, for renderers that
	// want a countdown basis when no reset timestamp is available.
	FallbackWindowMinutes *int `json:"fallback_window_minutes,omitempty"`
}

// Provider aggregates the metrics of one usage source for display.
// Metric order is significant and fixed by the producer.
type Provider struct {
	ProviderID   string       `json:"provider_id"`
	Title        string       `json:"title"`
	Availability Availability `json:"availability"`
	Metrics      []Metric     `json:"metrics"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Message      string       `json:"message,omitempty"`
	Origin       Origin       `json:"origin"`
}
