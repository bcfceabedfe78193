package presenter

import (
	"github.com/soocke/sensesafe-go/domain/capture"
	"github.com/soocke/sensesafe-go/ui/model"
)

// CameraLifecycle narrows what the presenter needs from the camera manager.
type CameraLifecycle interface {
	OnForeground()
	OnBackground()
	State() capture.LifecycleState
}

// CameraView updates UI elements affected by the camera state.
type CameraView interface {
	PreviewReset()
	SetCameraLabel(text string)
	ShowCameraError(text string)
}

// CameraPresenter binds the user's pause toggle and the window visibility to
// the camera lifecycle. The sensor is held only while both allow it.
type CameraPresenter struct {
	model  *model.CameraModel
	camera CameraLifecycle
	errs   <-chan error
	view   CameraView
	label  string
	failed bool
}

func NewCameraPresenter(m *model.CameraModel, camera CameraLifecycle, errs <-chan error, view CameraView) *CameraPresenter {
	return &CameraPresenter{model: m, camera: camera, errs: errs, view: view}
}

func (c *CameraPresenter) ready() bool {
	return c != nil && c.model != nil && c.camera != nil && c.view != nil
}

// Enable resumes the camera. Idempotent.
func (c *CameraPresenter) Enable() {
	if c.ready() && c.model.SetEnabled(true) {
		c.apply()
	}
}

// Disable pauses the camera and clears the preview. Idempotent.
func (c *CameraPresenter) Disable() {
	if c.ready() && c.model.SetEnabled(false) {
		c.apply()
	}
}

// Toggle flips the pause state delegating to Enable/Disable.
func (c *CameraPresenter) Toggle() {
	if !c.ready() {
		return
	}
	if c.model.Enabled() {
		c.Disable()
		return
	}
	c.Enable()
}

// SetVisible reports a host window visibility change.
func (c *CameraPresenter) SetVisible(visible bool) {
	if c.ready() && c.model.SetVisible(visible) {
		c.apply()
	}
}

func (c *CameraPresenter) apply() {
	if c.model.Live() {
		c.camera.OnForeground()
	} else {
		c.camera.OnBackground()
		c.view.PreviewReset()
	}
	c.refreshLabel()
}

// Tick reflects the lifecycle state and surfaces a sensor acquisition error.
func (c *CameraPresenter) Tick() {
	if !c.ready() {
		return
	}
	select {
	case err := <-c.errs:
		if err != nil {
			c.failed = true
			c.view.ShowCameraError("Camera unavailable: " + err.Error())
		}
	default:
	}
	c.refreshLabel()
}

func (c *CameraPresenter) refreshLabel() {
	text := "Camera: " + c.camera.State().String()
	if !c.model.Enabled() && !c.failed {
		text = "Camera: paused"
	}
	if text != c.label {
		c.label = text
		c.view.SetCameraLabel(text)
	}
}
