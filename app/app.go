package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/debug"
	"github.com/soocke/sensesafe-go/ui/theme"
	"github.com/soocke/sensesafe-go/ui/view"
)

const (
	tick          = 100 * time.Millisecond
	debugInterval = 10 * time.Second
)

type app struct {
	title   string
	width   int
	height  int
	c       *AppContainer
	afterID string
	stop    context.CancelFunc
}

// NewApp builds the container and configures the main window.
func NewApp(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger) *app {
	a := &app{title: title, width: width, height: height}
	a.c = BuildContainer(cfg, logger, cfgPath)
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the UI, starts the camera and runs the Tk event loop until the
// window is closed.
func (a *app) Start() {
	c := a.c
	theme.InitStyles()
	c.RootView.Build(view.Handlers{
		OnScan:        c.ScanPresenter.RequestScan,
		OnCancel:      c.ScanPresenter.Cancel,
		OnReset:       c.ScanPresenter.Reset,
		OnTogglePause: c.CameraPresenter.Toggle,
		OnRegion:      c.RootView.Region.OpenOrFocus,
		OnContrast:    func() { theme.ToggleHighContrast() },
		OnExit:        a.exitHandler,
		OnConfig:      c.ApplyConfig,
	})

	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	if c.Config.Debug {
		debug.StartGoroutineLogger(ctx, debugInterval, c.Logger)
		debug.StartMemLogger(ctx, debugInterval, c.Logger)
	}

	if err := c.CameraMgr.Start(c.PreviewPresenter); err != nil && c.Logger != nil {
		c.Logger.Error("camera start", "error", err)
	}
	c.Loop.Schedule = a.scheduleUpdate
	a.scheduleUpdate()

	App.Wait()
	a.shutdown()
}

func (a *app) scheduleUpdate() {
	// Schedule the next update using TclAfter to stay on Tk's event loop thread.
	a.afterID = TclAfter(tick, a.c.Loop.Tick)
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
		a.afterID = ""
	}
	Destroy(App)
}

func (a *app) shutdown() {
	if a.stop != nil {
		a.stop()
	}
	a.c.Close()
	if a.c.Logger != nil {
		a.c.Logger.Info("app stopped")
	}
}
