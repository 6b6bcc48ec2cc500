package app

import (
	"image"

	"github.com/rs/zerolog"
	"github.com/vova616/screenshot"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/service"
	"github.com/soocke/xr-mirror-go/ui/model"
	"github.com/soocke/xr-mirror-go/ui/presenter"
	"github.com/soocke/xr-mirror-go/ui/view"
)

// AppContainer assembles models, services, presenters and the root view.
type AppContainer struct {
	Config   *config.Config
	CfgPath  string
	Logger   zerolog.Logger
	Services *service.Services

	Capture *model.CaptureModel
	Session *model.SessionModel
	Status  *model.StatusModel

	RootView *view.RootView
	Panel    view.ConfigPanel
	Region   view.SelectionOverlay

	// Presenters
	SessionPresenter  *presenter.SessionPresenter
	StatusPresenter   *presenter.StatusPresenter
	SettingsPresenter *presenter.SettingsPresenter
	MirrorPresenter   *presenter.MirrorPresenter
	CapturePresenter  *presenter.CapturePresenter
	Loop              *presenter.Loop
}

// BuildContainer constructs models, the view and the presenters. Widgets are
// created later by RootView.Build.
func BuildContainer(cfg *config.Config, cfgPath string, svc *service.Services, logger zerolog.Logger) *AppContainer {
	c := &AppContainer{Config: cfg, CfgPath: cfgPath, Logger: logger, Services: svc}
	c.Capture = &model.CaptureModel{}
	c.Session = model.NewSessionModel()
	c.Status = model.NewStatusModel(presenter.StatusInitializing)
	c.RootView = view.NewRootView(Title, Version, logger)

	pipe := svc.Pipeline
	c.StatusPresenter = presenter.NewStatusPresenter(c.Status, pipe.Events(), c.RootView)
	c.CapturePresenter = presenter.NewCapturePresenter(c.Capture, pipe, c.StatusPresenter, c.RootView)
	c.StatusPresenter.OnLost = c.CapturePresenter.Halted
	c.SettingsPresenter = presenter.NewSettingsPresenter(cfg, cfgPath, pipe, c.RootView, c.StatusPresenter, c.RootView, logger)
	c.MirrorPresenter = presenter.NewMirrorPresenter(pipe.Latest(), c.RootView, c.Session.FrameShown)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Capture, c.RootView)

	c.Panel = view.NewConfigPanel(func(v view.PanelValues) {
		c.SettingsPresenter.SetStrength(v.Strength)
		c.setRegion(v.Region)
	}, logger)
	c.Region = view.NewSelectionOverlay(savedRegion(cfg.Capture), screenshot.ScreenRect, c.setRegion, logger)
	return c
}

func (c *AppContainer) setRegion(r image.Rectangle) {
	cur := savedRegion(c.Config.Capture)
	if r == cur {
		return
	}
	c.SettingsPresenter.SetRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

func savedRegion(c config.Capture) image.Rectangle {
	if c.RegionW <= 0 || c.RegionH <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(c.RegionX, c.RegionY, c.RegionX+c.RegionW, c.RegionY+c.RegionH)
}
