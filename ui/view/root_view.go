package view

import (
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/domain/scan"
	"github.com/soocke/sensesafe-go/ui/model"
	"github.com/soocke/sensesafe-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are invoked on user actions.
type Handlers struct {
	OnScan        func()
	OnCancel      func()
	OnReset       func()
	OnTogglePause func()
	OnRegion      func()
	OnContrast    func()
	OnExit        func()
	OnConfig      func(*config.Config)
}

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	ConfigPanel ConfigPanel
	Preview     Preview
	Region      RegionOverlay

	// Widgets
	CameraLabel *LabelWidget
	Banner      *LabelWidget
	Status      *LabelWidget
	cancelBtn   *TButtonWidget
	resetBtn    *TButtonWidget

	mapped atomic.Bool
}

// UI abstracts the subset of view operations needed by presenters.
type UI interface {
	PreviewReset()
	SetCameraLabel(text string)
	ShowCameraError(text string)
	SetExitBanner(visible bool, text string)
	UpdateCapture(img image.Image)
	UpdateDetection(img image.Image)
	UpdateResult(img image.Image)
	SetScanStatus(text string)
	SetScanControls(kind scan.Kind)
	SetSession(v model.SessionValues)
	SetPipelineStats(text string)
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	rv := &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
	rv.mapped.Store(true)
	rv.Region = NewRegionOverlay(cfg, cfgPath, logger)
	return rv
}

// Build constructs the layout.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	pal := theme.CurrentPalette()

	// Row 0: stats, camera state, buttons
	statsFrame := Frame()
	Grid(statsFrame, Row(0), Column(0), Columnspan(2), Sticky("w"), Padx("0.3m"), Pady("0.3m"))
	rv.Session = NewSessionStats(statsFrame, 0, 0)
	rv.CameraLabel = Label(Txt("Camera: created"), Borderwidth(1), Relief("ridge"))
	Grid(rv.CameraLabel, Row(0), Column(2), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	scanBtn := TButton(Txt("Scan for Exits"), Style(theme.StylePrimaryButton), Command(h.OnScan))
	Grid(scanBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.cancelBtn = TButton(Txt("Cancel Scan"), Command(h.OnCancel))
	Grid(rv.cancelBtn, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.resetBtn = TButton(Txt("Clear Result"), Command(h.OnReset))
	Grid(rv.resetBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	pauseBtn := TButton(Txt("Pause / Resume Camera"), Command(h.OnTogglePause))
	Grid(pauseBtn, In(btnFrame), Row(3), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	regionBtn := TButton(Txt("Camera Region"), Command(h.OnRegion))
	Grid(regionBtn, In(btnFrame), Row(4), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	contrastBtn := TButton(Txt("High Contrast"), Command(h.OnContrast))
	Grid(contrastBtn, In(btnFrame), Row(5), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Quit"), Style(theme.StyleDangerButton), Command(h.OnExit))
	Grid(exitBtn, In(btnFrame), Row(6), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.SetScanControls(scan.KindIdle)

	// Row 1: exit banner, row 2: scan status
	rv.Banner = Label(Txt(" "), theme.BannerFont(), Background(pal.Surface), Foreground(pal.Muted), Anchor("center"))
	Grid(rv.Banner, Row(1), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	rv.Status = Label(Txt(""), theme.StatusFont(), Background(pal.Surface), Foreground(pal.Text), Anchor("w"))
	Grid(rv.Status, Row(2), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.2m"))

	// Preview rows, then the config form
	var next int
	rv.Preview, next = NewPreview(3)
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, h.OnConfig)
	rv.ConfigPanel.Build(next)

	Bind(App, "<Map>", Command(func() { rv.mapped.Store(true) }))
	Bind(App, "<Unmap>", Command(func() { rv.mapped.Store(false) }))
}

// Visible reports whether the main window is mapped (not minimized).
func (rv *RootView) Visible() bool { return rv != nil && rv.mapped.Load() }

func (rv *RootView) SetCameraLabel(text string) {
	if rv != nil && rv.CameraLabel != nil {
		rv.CameraLabel.Configure(Txt(text), Foreground(theme.CurrentPalette().Text))
	}
}

func (rv *RootView) ShowCameraError(text string) {
	if rv != nil && rv.CameraLabel != nil {
		rv.CameraLabel.Configure(Txt(text), Foreground(theme.CurrentPalette().Danger))
	}
}

// SetExitBanner shows or hides the "exit visible" banner.
func (rv *RootView) SetExitBanner(visible bool, text string) {
	if rv == nil || rv.Banner == nil {
		return
	}
	pal := theme.CurrentPalette()
	if visible {
		rv.Banner.Configure(Txt(text), Background(pal.Banner), Foreground(pal.BannerInk))
		return
	}
	rv.Banner.Configure(Txt(" "), Background(pal.Surface), Foreground(pal.Muted))
}

func (rv *RootView) SetScanStatus(text string) {
	if rv != nil && rv.Status != nil {
		rv.Status.Configure(Txt(text))
	}
}

// SetScanControls enables Cancel while loading and Clear once a result is shown.
func (rv *RootView) SetScanControls(kind scan.Kind) {
	if rv == nil || rv.cancelBtn == nil || rv.resetBtn == nil {
		return
	}
	cancel, reset := "disabled", "disabled"
	switch kind {
	case scan.KindLoading:
		cancel = "normal"
	case scan.KindSuccess, scan.KindError:
		reset = "normal"
	}
	rv.cancelBtn.Configure(State(cancel))
	rv.resetBtn.Configure(State(reset))
}

// UpdateCapture proxies to the preview view.
func (rv *RootView) UpdateCapture(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateCapture(img)
	}
}

// UpdateDetection proxies to the preview view.
func (rv *RootView) UpdateDetection(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateDetection(img)
	}
}

// UpdateResult proxies to the preview view.
func (rv *RootView) UpdateResult(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateResult(img)
	}
}

func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

func (rv *RootView) SetSession(v model.SessionValues) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetSession(v)
	}
}

func (rv *RootView) SetPipelineStats(text string) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetPipelineStats(text)
	}
}
