package model

import (
	"sync/atomic"
)

// CameraModel tracks whether the user wants the camera running and whether
// the host window is visible. The camera is live only when both hold. The
// zero value is paused and hidden, and is usable.
type CameraModel struct {
	enabled atomic.Bool
	visible atomic.Bool
}

// NewCameraModel returns a model with the camera enabled and the window visible.
func NewCameraModel() *CameraModel {
	m := &CameraModel{}
	m.enabled.Store(true)
	m.visible.Store(true)
	return m
}

// Enabled reports whether the user has the camera switched on.
func (m *CameraModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the enabled flag and reports whether it changed.
func (m *CameraModel) SetEnabled(b bool) bool {
	if m == nil {
		return false
	}
	return m.enabled.Swap(b) != b
}

// Visible reports whether the host window is on screen.
func (m *CameraModel) Visible() bool {
	if m == nil {
		return false
	}
	return m.visible.Load()
}

// SetVisible stores the visibility flag and reports whether it changed.
func (m *CameraModel) SetVisible(b bool) bool {
	if m == nil {
		return false
	}
	return m.visible.Swap(b) != b
}

// Live reports whether the camera should hold a sensor session.
func (m *CameraModel) Live() bool { return m.Enabled() && m.Visible() }
