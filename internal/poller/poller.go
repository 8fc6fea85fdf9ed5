// Package poller periodically captures Claude usage telemetry, persists it,
// and fans the resulting status out to the UI, web clients, and notifier.
package poller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/quotaglass/quotaglass/internal/claude"
	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/events"
	"github.com/quotaglass/quotaglass/internal/notify"
	"github.com/quotaglass/quotaglass/internal/usage"
)

type OnUpdate func(usage.Status)

// Options configures a Poller. FetchUsage and FetchBlocks default to the
// production sources; tests inject fakes.
type Options struct {
	Store              *db.DB
	Interval           time.Duration
	ContextLimitTokens int64
	HistoryRetention   time.Duration
	AlertPercent       float64
	Notifier           *notify.Notifier
	Broadcaster        events.Broadcaster
	OnUpdate           OnUpdate
	Logger             *slog.Logger

	FetchUsage  func() (*claude.UsageResponse, error)
	FetchBlocks func() ([]claude.Block, error)
	Now         func() time.Time
}

type Poller struct {
	opts Options

	// alerted tracks which windows are currently above the threshold so a
	// sustained overage fires exactly one alert.
	alerted map[string]bool

	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(opts Options) *Poller {
	if opts.FetchUsage == nil {
		c := &claude.Client{}
		opts.FetchUsage = c.FetchUsage
	}
	if opts.FetchBlocks == nil {
		opts.FetchBlocks = claude.FetchBlocks
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		opts:    opts,
		alerted: make(map[string]bool),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Poll()
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Poll()
			case <-p.kick:
				p.Poll()
			case <-p.stop:
				return
			}
		}
	}()
}

func (p *Poller) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Refresh requests an immediate poll without waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Poll runs one capture cycle synchronously and returns the stored status.
// Partial failures degrade to absent fields rather than aborting the cycle.
func (p *Poller) Poll() (usage.Status, bool) {
	tel := claude.Telemetry{CapturedAt: p.opts.Now()}

	resp, err := p.opts.FetchUsage()
	if err != nil {
		p.opts.Logger.Debug("usage fetch failed", "err", err)
	} else {
		if resp.FiveHour != nil {
			util := resp.FiveHour.Utilization
			tel.FiveHourUtilization = &util
			tel.FiveHourResetsAt = claude.ParseResetsAt(resp.FiveHour.ResetsAt)
		}
		if resp.SevenDay != nil {
			util := resp.SevenDay.Utilization
			tel.SevenDayUtilization = &util
			tel.SevenDayResetsAt = claude.ParseResetsAt(resp.SevenDay.ResetsAt)
		}
	}

	blocks, err := p.opts.FetchBlocks()
	if err != nil {
		p.opts.Logger.Debug("block fetch failed", "err", err)
	} else if tokens, ok := claude.ActiveBlockTokens(blocks); ok {
		tel.ContextUsedTokens = &tokens
		if p.opts.ContextLimitTokens > 0 {
			limit := p.opts.ContextLimitTokens
			tel.ContextLimitTokens = &limit
		}
	}

	if tel.FiveHourUtilization == nil && tel.SevenDayUtilization == nil && tel.ContextUsedTokens == nil {
		return usage.Status{}, false
	}

	status := tel.Status()
	if err := p.opts.Store.InsertUsageSnapshot(db.FromStatus(status)); err != nil {
		p.opts.Logger.Warn("usage snapshot insert failed", "err", err)
	}
	if p.opts.HistoryRetention > 0 {
		cutoff := status.UpdatedAt.Add(-p.opts.HistoryRetention)
		if err := p.opts.Store.PruneUsageSnapshots(cutoff); err != nil {
			p.opts.Logger.Debug("usage snapshot prune failed", "err", err)
		}
	}

	p.checkAlerts(status)
	p.broadcast(events.Event{
		Type:             events.TypeUsageUpdated,
		Provider:         "claude",
		PrimaryPercent:   status.PrimaryUsedPercent,
		SecondaryPercent: status.SecondaryUsedPercent,
	})
	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(status)
	}
	return status, true
}

// checkAlerts fires edge-triggered notifications: one alert when a window
// rises across the threshold, re-armed once it drops back below.
func (p *Poller) checkAlerts(s usage.Status) {
	if p.opts.AlertPercent <= 0 {
		return
	}
	p.checkWindow("5-hour", s.PrimaryUsedPercent, s.PrimaryResetAt)
	p.checkWindow("weekly", s.SecondaryUsedPercent, s.SecondaryResetAt)
}

func (p *Poller) checkWindow(window string, pct *float64, resetAt *time.Time) {
	if pct == nil {
		return
	}
	above := *pct >= p.opts.AlertPercent
	switch {
	case above && !p.alerted[window]:
		p.alerted[window] = true
		p.opts.Logger.Info("usage alert", "window", window, "percent", *pct)
		if p.opts.Notifier != nil {
			p.opts.Notifier.Notify(notify.Alert{Window: window, Percent: *pct, ResetAt: resetAt})
		}
		e := events.Event{Type: events.TypeAlert, Provider: "claude"}
		if window == "weekly" {
			e.SecondaryPercent = pct
		} else {
			e.PrimaryPercent = pct
		}
		p.broadcast(e)
	case !above:
		p.alerted[window] = false
	}
}

func (p *Poller) broadcast(e events.Event) {
	if p.opts.Broadcaster != nil {
		p.opts.Broadcaster.Broadcast(e)
	}
}
