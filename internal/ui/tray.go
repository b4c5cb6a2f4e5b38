package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

// StatusSource reports the live numbers shown in the tray menu.
type StatusSource interface {
	State() string
	ClipCount() int
}

type Tray struct {
	status StatusSource
	addr   string
	logger *slog.Logger

	statusItem *systray.MenuItem
	clipsItem  *systray.MenuItem
	addrItem   *systray.MenuItem

	mu sync.Mutex

	onOpenStudio func()
	onExportNow  func()
	onQuit       func()
}

type TrayConfig struct {
	Status       StatusSource
	Addr         string
	Logger       *slog.Logger
	OnOpenStudio func()
	OnExportNow  func()
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		status:       cfg.Status,
		addr:         cfg.Addr,
		logger:       cfg.Logger,
		onOpenStudio: cfg.OnOpenStudio,
		onExportNow:  cfg.OnExportNow,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Cutdeck")
	systray.SetTooltip("Cutdeck Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current playback state")
	t.statusItem.Disable()

	t.clipsItem = systray.AddMenuItem("Clips: 0", "Clips on the timeline")
	t.clipsItem.Disable()

	t.addrItem = systray.AddMenuItem("Listening on "+t.addr, "Local API address")
	t.addrItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Studio...", "Open the editor in the browser")
	exportItem := systray.AddMenuItem("Export Timeline", "Render the timeline to a file")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Cutdeck Agent")

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				if t.onOpenStudio != nil {
					t.onOpenStudio()
				}
			case <-exportItem.ClickedCh:
				if t.onExportNow != nil {
					t.onExportNow()
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// Refresh pulls current numbers into the menu. Called from a ticker in main.
func (t *Tray) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == nil || t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle("Status: " + t.status.State())
	t.clipsItem.SetTitle(fmt.Sprintf("Clips: %d", t.status.ClipCount()))
}

func (t *Tray) Quit() {
	systray.Quit()
}
