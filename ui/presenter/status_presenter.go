package presenter

import (
	"fmt"
	"time"

	"github.com/soocke/xr-mirror-go/domain/capture"
	"github.com/soocke/xr-mirror-go/ui/model"
)

const (
	StatusInitializing = "Initializing..."
	StatusStarting     = "Connected - starting capture..."
	StatusNoRuntime    = "Runtime not available. Is the headset connected?"
	StatusStopped      = "Capture stopped"

	statusHideDelay = 2 * time.Second
)

// StatusView shows the status line and the reconnect control.
type StatusView interface {
	SetStatus(text string, visible bool)
	SetReconnectVisible(bool)
}

// StatusPresenter turns pipeline events and lifecycle notices into the status
// line. Events are drained on Tick so the view is only touched from the Tk
// thread.
type StatusPresenter struct {
	model  *model.StatusModel
	events <-chan capture.Event
	view   StatusView
	// OnLost runs once per lost session, after the loop has stopped.
	OnLost func()

	now func() time.Time
}

func NewStatusPresenter(m *model.StatusModel, events <-chan capture.Event, view StatusView) *StatusPresenter {
	return &StatusPresenter{model: m, events: events, view: view, now: time.Now}
}

func (p *StatusPresenter) OnStarting() {
	if p == nil {
		return
	}
	p.model.Show(StatusStarting)
	if p.view != nil {
		p.view.SetReconnectVisible(false)
	}
}

// OnUnavailable reports a missing runtime; Reconnect retries the probe.
func (p *StatusPresenter) OnUnavailable() {
	if p == nil {
		return
	}
	p.model.Show(StatusNoRuntime)
	if p.view != nil {
		p.view.SetReconnectVisible(true)
	}
}

func (p *StatusPresenter) OnError(err error) {
	if p == nil || err == nil {
		return
	}
	p.model.Show("Capture error: " + err.Error())
	if p.view != nil && capture.IsConnectionError(err) {
		p.view.SetReconnectVisible(true)
	}
}

// Notify shows text briefly.
func (p *StatusPresenter) Notify(text string) {
	if p == nil {
		return
	}
	p.model.Show(text)
	p.model.HideAfter(p.now(), statusHideDelay)
}

// Tick drains pending events and flushes the model to the view.
func (p *StatusPresenter) Tick(now time.Time) {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	p.drain(now)
	p.model.OnTick(now)
	if text, visible, changed := p.model.Take(); changed {
		p.view.SetStatus(text, visible)
	}
}

func (p *StatusPresenter) drain(now time.Time) {
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				p.events = nil
				return
			}
			p.handle(ev, now)
		default:
			return
		}
	}
}

func (p *StatusPresenter) handle(ev capture.Event, now time.Time) {
	switch ev.Kind {
	case capture.EventStarted:
		p.model.HideAfter(now, statusHideDelay)
	case capture.EventReconnectNeeded:
		msg := "Session lost - reconnect to resume"
		if ev.Err != nil {
			msg = fmt.Sprintf("Capture error: %v - reconnect to resume", ev.Err)
		}
		p.model.Show(msg)
		p.view.SetReconnectVisible(true)
		if p.OnLost != nil {
			p.OnLost()
		}
	case capture.EventReconfigured:
		p.model.Show(fmt.Sprintf("Output %dx%d", ev.Width, ev.Height))
		p.model.HideAfter(now, statusHideDelay)
	}
}
