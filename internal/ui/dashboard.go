package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/usage"
)

const (
	barWidth     = 30
	historyDepth = 48
)

// Dashboard renders the current provider snapshot plus utilization history.
type Dashboard struct {
	*tview.TextView
	store *db.DB
}

func NewDashboard(store *db.DB) *Dashboard {
	d := &Dashboard{
		TextView: tview.NewTextView(),
		store:    store,
	}
	d.SetBorder(true).SetTitle(" Claude Usage ").SetTitleAlign(tview.AlignLeft)
	d.SetDynamicColors(true)
	d.SetBackgroundColor(tcell.ColorDefault)
	return d
}

// Reload re-reads the DB and redraws. Safe to call from the UI goroutine.
func (d *Dashboard) Reload() {
	latest, _ := d.store.GetLatestUsageSnapshot()
	history, _ := d.store.ListUsageSnapshots(historyDepth)
	d.SetText(d.buildText(latest, history))
	d.SetBorderColor(borderColor(latest))
}

// borderColor reflects the worst window utilization so an almost-exhausted
// limit is visible at a glance.
func borderColor(latest *db.UsageSnapshot) tcell.Color {
	if latest == nil {
		return ColorBorder
	}
	max := 0.0
	for _, v := range []*float64{latest.FiveHourUtil, latest.SevenDayUtil} {
		if v != nil && *v/100 > max {
			max = *v / 100
		}
	}
	if max < 0.6 {
		return ColorBorder
	}
	return SeverityTcell(max)
}

// ShowRefreshing appends a transient refresh indicator.
func (d *Dashboard) ShowRefreshing() {
	latest, _ := d.store.GetLatestUsageSnapshot()
	history, _ := d.store.ListUsageSnapshots(historyDepth)
	d.SetText(d.buildText(latest, history) + "\n\n  [yellow]Refreshing...[-]")
}

func (d *Dashboard) buildText(latest *db.UsageSnapshot, history []db.UsageSnapshot) string {
	var sb strings.Builder

	if latest == nil {
		sb.WriteString("\n  [yellow]No usage data yet.[-]\n\n")
		sb.WriteString("  Press [green]R[-] to fetch current usage.\n")
		sb.WriteString("\n  [dim]Press Q or Esc to quit.[-]")
		return sb.String()
	}

	provider := latest.Status().ProviderSnapshot()
	now := time.Now()

	sb.WriteString("\n")
	for _, m := range provider.Metrics {
		sb.WriteString(fmt.Sprintf("  [yellow]%s[-]\n", m.Label))
		if m.Progress == nil && m.UsageText == "" {
			sb.WriteString("  [dim]no data[-]\n\n")
			continue
		}
		sb.WriteString("  " + metricLine(m, barWidth) + "\n")
		switch {
		case m.ResetAt != nil:
			sb.WriteString(fmt.Sprintf("  Resets %s\n", formatResetTime(*m.ResetAt, now)))
		case m.FallbackWindowMinutes != nil:
			sb.WriteString(fmt.Sprintf("  [dim]%s window[-]\n",
				usage.FormatWindowMinutes(float64(*m.FallbackWindowMinutes))))
		}
		sb.WriteString("\n")
	}

	if len(history) > 1 {
		sb.WriteString("  [yellow]History (newest right)[-]\n")
		sb.WriteString(fmt.Sprintf("  5-hr  %s\n", historySparkline(history, func(u db.UsageSnapshot) *float64 { return u.FiveHourUtil })))
		sb.WriteString(fmt.Sprintf("  7-day %s\n", historySparkline(history, func(u db.UsageSnapshot) *float64 { return u.SevenDayUtil })))

		oldest := time.UnixMilli(history[len(history)-1].TsMs)
		newest := time.UnixMilli(history[0].TsMs)
		sb.WriteString(fmt.Sprintf("  [dim]%s  →  %s[-]\n\n",
			oldest.Local().Format("Jan 2 15:04"),
			newest.Local().Format("Jan 2 15:04")))
	}

	sb.WriteString(fmt.Sprintf("  [dim]Last updated %s[-]\n", humanize.Time(provider.UpdatedAt)))
	sb.WriteString("\n  [green]R[-] refresh  [green]?[-] help  [green]Q/Esc[-] quit")

	return sb.String()
}

// historySparkline extracts one window's utilization series, oldest first.
// Rows with no reading render as zero.
func historySparkline(history []db.UsageSnapshot, val func(db.UsageSnapshot) *float64) string {
	fracs := make([]float64, len(history))
	for i, u := range history {
		if v := val(u); v != nil {
			fracs[len(history)-1-i] = *v / 100
		}
	}
	return sparkline(fracs)
}
