package app

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/soocke/sensesafe-go/assets"
	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/domain/capture"
	"github.com/soocke/sensesafe-go/domain/classify"
	"github.com/soocke/sensesafe-go/domain/cue"
	"github.com/soocke/sensesafe-go/domain/detection"
	"github.com/soocke/sensesafe-go/domain/hysteresis"
	"github.com/soocke/sensesafe-go/domain/remote"
	"github.com/soocke/sensesafe-go/domain/scan"
	"github.com/soocke/sensesafe-go/ui/model"
	"github.com/soocke/sensesafe-go/ui/presenter"
	"github.com/soocke/sensesafe-go/ui/view"
)

// AppContainer assembles models, services, presenters and the root view.
type AppContainer struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Camera  *model.CameraModel
	Session *model.SessionModel
	Alert   *model.AlertModel

	Sensor     *capture.ScreenSensor
	CameraMgr  *capture.CameraManager
	Classifier classify.Classifier
	Scanner    *scan.StateMachine
	Beeper     *cue.Beeper
	orch       atomic.Pointer[remote.Orchestrator]

	RootView *view.RootView
	UI       view.UI

	// Presenters
	Dispatch          *presenter.UIDispatcher
	PreviewPresenter  *presenter.PreviewPresenter
	CameraPresenter   *presenter.CameraPresenter
	AlertPresenter    *presenter.AlertPresenter
	ScanPresenter     *presenter.ScanPresenter
	SessionPresenter  *presenter.SessionPresenter
	VisibilityWatcher *presenter.VisibilityWatcher
	Loop              *presenter.Loop
}

// BuildContainer constructs all components. Side-effects limited to asset
// loading; the camera is started by the app once the window exists.
func BuildContainer(cfg *config.Config, logger *slog.Logger, cfgPath string) *AppContainer {
	c := &AppContainer{Config: cfg, ConfigPath: cfgPath, Logger: logger}
	c.Camera = model.NewCameraModel()
	c.Session = model.NewSessionModel()
	c.Alert = model.NewAlertModel()

	// View first: the region overlay feeds the sensor.
	c.RootView = view.NewRootView(cfg, cfgPath, logger)
	c.UI = c.RootView

	c.Sensor = capture.NewScreenSensor(logger, cfg.CaptureInterval(), cfg.SensorRotation)
	c.Sensor.Region = c.RootView.Region.ActiveRect
	c.Classifier = buildClassifier(cfg, logger)
	c.Dispatch = presenter.NewUIDispatcher(logger)
	c.CameraMgr = capture.NewCameraManager(logger, c.Sensor, capture.ManagerOptions{
		Converter:  capture.NewFrameConverter(cfg.InferenceMaxSide, cfg.JPEGQuality),
		Dispatcher: c.Dispatch,
		Gate: hysteresis.Options{
			RequiredStreak: cfg.RequiredStreak,
			Cooldown:       cfg.Cooldown(),
			Label:          cfg.ExitLabel,
		},
		Foreground: true,
	})
	c.CameraMgr.SetFrameHandler(c.Classifier.Classify)

	c.orch.Store(remote.NewFromConfig(logger, cfg))
	c.Scanner = scan.NewStateMachine(logger, scan.DetectorFunc(c.detectAll))
	c.Beeper = cue.NewBeeper(logger)

	c.PreviewPresenter = presenter.NewPreviewPresenter(c.UI)
	c.CameraPresenter = presenter.NewCameraPresenter(c.Camera, c.CameraMgr, c.CameraMgr.Errors(), c.UI)
	c.AlertPresenter = presenter.NewAlertPresenter(c.Alert, c.Session, c.PreviewPresenter, c.UI, c.Beeper, logger)
	c.ScanPresenter = presenter.NewScanPresenter(c.Scanner, c.Sensor, c.Dispatch, c.UI, c.Beeper, c.Session, logger)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Camera, c.CameraMgr, c.UI)
	c.VisibilityWatcher = presenter.NewVisibilityWatcher(c.RootView.Visible, c.CameraPresenter.SetVisible)

	c.CameraMgr.AddExitListener(c.AlertPresenter.OnExit)
	c.Scanner.AddListener(c.ScanPresenter.OnState)

	c.Loop = &presenter.Loop{
		Dispatch:   c.Dispatch,
		Visibility: c.VisibilityWatcher,
		Camera:     c.CameraPresenter,
		Scan:       c.ScanPresenter,
		Alert:      c.AlertPresenter,
		Session:    c.SessionPresenter,
	}
	return c
}

// detectAll routes a scan to the orchestrator built from the latest applied config.
func (c *AppContainer) detectAll(ctx context.Context, img image.Image) detection.MergedDetectionResult {
	return c.orch.Load().DetectAll(ctx, img)
}

// ApplyConfig rebuilds the remote orchestrator from cfg. Scans already in
// flight keep the services they started with. Camera and gate settings take
// effect on the next start.
func (c *AppContainer) ApplyConfig(cfg *config.Config) {
	if c == nil || cfg == nil {
		return
	}
	c.orch.Store(remote.NewFromConfig(c.Logger, cfg))
	if c.Logger != nil {
		c.Logger.Info("remote services reloaded", "configured", cfg.ConfiguredCount())
	}
}

// Close stops the scan machine and the camera, then waits for pending cues.
func (c *AppContainer) Close() {
	if c == nil {
		return
	}
	c.Scanner.Close()
	c.CameraMgr.Shutdown()
	c.CameraMgr.Wait()
	c.Beeper.Wait()
}

func buildClassifier(cfg *config.Config, logger *slog.Logger) classify.Classifier {
	tmpl, err := assets.ExitSignImage()
	if err != nil {
		if logger != nil {
			logger.Error("exit sign template", "error", err)
		}
		return classify.Nop
	}
	tc, err := classify.NewTemplateClassifier(logger, tmpl, classify.TemplateOptions{
		Label:       cfg.ExitLabel,
		MinScale:    cfg.MinScale,
		MaxScale:    cfg.MaxScale,
		ScaleStep:   cfg.ScaleStep,
		Threshold:   cfg.TemplateThreshold,
		Stride:      cfg.Stride,
		Refine:      cfg.Refine,
		StopOnScore: cfg.StopOnScore,
	})
	if err != nil {
		if logger != nil {
			logger.Error("exit sign classifier", "error", err)
		}
		return classify.Nop
	}
	return tc
}
