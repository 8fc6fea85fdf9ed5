// Package ui is the terminal dashboard: one screen showing the current
// Claude quota snapshot, refreshed by the background poller.
package ui

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/quotaglass/quotaglass/internal/config"
	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/notify"
	"github.com/quotaglass/quotaglass/internal/poller"
	"github.com/quotaglass/quotaglass/internal/usage"
	"github.com/quotaglass/quotaglass/internal/webserver"
)

type App struct {
	tapp   *tview.Application
	pages  *tview.Pages
	dash   *Dashboard
	store  *db.DB
	cfg    config.Config
	pol    *poller.Poller
	web    *webserver.Server
	logger *slog.Logger
}

func NewApp(store *db.DB, cfg config.Config, logger *slog.Logger) *App {
	a := &App{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}

	a.tapp = tview.NewApplication()
	a.pages = tview.NewPages()
	a.dash = NewDashboard(store)

	notifier := notify.New(notify.Config{
		Enabled: cfg.Notifications.Enabled,
		Webhook: cfg.Notifications.Webhook,
		NtfyURL: cfg.Notifications.NtfyURL,
	}, logger)

	tlsCacheDir := cfg.Webserver.TLS.CacheDir
	if tlsCacheDir == "" {
		tlsCacheDir = config.CertCacheDir()
	}
	a.web = webserver.New(store, webserver.Config{
		Enabled: cfg.Webserver.Enabled,
		Port:    cfg.Webserver.Port,
		Host:    cfg.Webserver.Host,
		TLS: webserver.TLSConfig{
			Mode:     cfg.Webserver.TLS.Mode,
			CertFile: cfg.Webserver.TLS.CertFile,
			KeyFile:  cfg.Webserver.TLS.KeyFile,
			CacheDir: tlsCacheDir,
		},
		Auth: webserver.AuthConfig{
			JWTSecret:       cfg.Webserver.Auth.JWTSecret,
			RefreshTokenTTL: time.Duration(cfg.Webserver.Auth.RefreshTokenTTLDays) * 24 * time.Hour,
		},
	}, logger)

	a.pol = poller.New(poller.Options{
		Store:              store,
		Interval:           time.Duration(cfg.RefreshSeconds) * time.Second,
		ContextLimitTokens: cfg.ContextLimitTokens,
		HistoryRetention:   time.Duration(cfg.HistoryDays) * 24 * time.Hour,
		AlertPercent:       cfg.Notifications.AlertPercent,
		Notifier:           notifier,
		Broadcaster:        a.web,
		Logger:             logger,
		OnUpdate: func(usage.Status) {
			a.tapp.QueueUpdateDraw(func() {
				a.dash.Reload()
			})
		},
	})

	a.pages.AddPage("dashboard", a.dash, true, true)
	a.tapp.SetRoot(a.pages, true).EnableMouse(false)
	a.tapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Rune() == '?':
			a.showHelp()
			return nil
		case event.Rune() == 'r', event.Rune() == 'R':
			a.dash.ShowRefreshing()
			a.pol.Refresh()
			return nil
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q', event.Rune() == 'Q':
			a.tapp.Stop()
			return nil
		}
		return event
	})

	return a
}

func (a *App) Run() error {
	if err := a.web.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: webserver: %v\n", err)
	}

	a.dash.Reload()
	a.pol.Start()
	defer a.pol.Stop()

	return a.tapp.Run()
}

func (a *App) showHelp() {
	text := tview.NewTextView()
	text.SetDynamicColors(true)
	text.SetBorder(true).SetTitle(" Help ").SetTitleAlign(tview.AlignLeft)
	text.SetText(`
  [yellow]Keys[-]

  [green]r[-]      refresh usage now
  [green]?[-]      toggle this help
  [green]q/Esc[-]  quit

  [yellow]Data[-]

  Rate-limit windows come from the Claude usage API.
  Context tokens come from local session logs via ccusage.
`)
	text.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		a.pages.RemovePage("help")
		return nil
	})

	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(text, 56, 0, true).
			AddItem(nil, 0, 1, false), 16, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage("help", modal, true, true)
}
