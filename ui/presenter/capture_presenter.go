package presenter

import (
	"errors"

	"github.com/soocke/xr-mirror-go/domain/capture"
)

// CaptureModel provides enabled state access.
type CaptureModel interface {
	Enabled() bool
	SetEnabled(bool)
}

// LifecycleContract narrows what the presenter needs from the mirror pipeline.
type LifecycleContract interface {
	Start() error
	Stop() error
	Reconnect() error
}

// CaptureStatus receives lifecycle notices for the status line.
type CaptureStatus interface {
	OnStarting()
	OnError(err error)
}

// CaptureView updates UI elements affected by capture toggling.
type CaptureView interface {
	PreviewReset()
	SetCapturing(bool)
}

// CapturePresenter owns presentation logic for toggling mirroring.
type CapturePresenter struct {
	model   CaptureModel
	service LifecycleContract
	status  CaptureStatus
	view    CaptureView
}

func NewCapturePresenter(model CaptureModel, service LifecycleContract, status CaptureStatus, view CaptureView) *CapturePresenter {
	return &CapturePresenter{model: model, service: service, status: status, view: view}
}

func (c *CapturePresenter) ready() bool {
	return c != nil && c.model != nil && c.service != nil && c.view != nil && c.status != nil
}

// Enable starts the pipeline, connecting a fresh session when none is live.
// Idempotent.
func (c *CapturePresenter) Enable() {
	if !c.ready() || c.model.Enabled() {
		return
	}
	c.status.OnStarting()
	err := c.service.Start()
	if errors.Is(err, capture.ErrNotConnected) {
		err = c.service.Reconnect()
	}
	if err != nil {
		c.status.OnError(err)
		return
	}
	c.model.SetEnabled(true)
	c.view.SetCapturing(true)
}

// Disable stops the pipeline and resets the preview. Idempotent.
func (c *CapturePresenter) Disable() {
	if !c.ready() || !c.model.Enabled() {
		return
	}
	if err := c.service.Stop(); err != nil {
		c.status.OnError(err)
	}
	c.Halted()
}

// Halted records that the pipeline stopped on its own, e.g. after a lost
// session.
func (c *CapturePresenter) Halted() {
	if !c.ready() {
		return
	}
	c.model.SetEnabled(false)
	c.view.PreviewReset()
	c.view.SetCapturing(false)
}

// Toggle flips enabled state delegating to Enable/Disable.
func (c *CapturePresenter) Toggle() {
	if !c.ready() {
		return
	}
	if c.model.Enabled() {
		c.Disable()
		return
	}
	c.Enable()
}

// Reconnect drops whatever is left of the old session and starts over.
func (c *CapturePresenter) Reconnect() {
	if !c.ready() {
		return
	}
	if c.model.Enabled() {
		_ = c.service.Stop()
		c.model.SetEnabled(false)
	}
	c.Enable()
}
