package events

// Event is a real-time update pushed to web clients.
type Event struct {
	Type             string   `json:"type"`
	Provider         string   `json:"provider,omitempty"`
	PrimaryPercent   *float64 `json:"primary_percent,omitempty"`
	SecondaryPercent *float64 `json:"secondary_percent,omitempty"`
}

const (
	// TypeUsageUpdated fires after each successful poll.
	TypeUsageUpdated = "usage_updated"
	// TypeAlert fires when a window crosses the alert threshold.
	TypeAlert = "alert"
)

// Broadcaster sends events to connected web clients.
// A nil Broadcaster is safe to use -- Broadcast becomes a no-op.
type Broadcaster interface {
	Broadcast(e Event)
}
