package view

import (
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// HotkeyHelp is shown by Help > Hotkeys.
const HotkeyHelp = `Ctrl+1  Switch to 720p
Ctrl+2  Switch to 1080p
Ctrl+L  Left eye
Ctrl+R  Right eye
Ctrl+B  Both eyes
Ctrl+S  Toggle smoothing`

// Handlers are the user actions the root view dispatches.
type Handlers struct {
	ToggleCapture   func()
	Reconnect       func()
	SetResolution   func(config.Resolution)
	SetEye          func(config.Eye)
	ToggleSmoothing func()
	SetStrength     func(int)
	OpenSettings    func()
	PickRegion      func()
	Exit            func()
}

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	log     zerolog.Logger
	title   string
	version string

	Session SessionStats
	Mirror  MirrorSurface

	StatusLabel  *TLabelWidget
	InfoLabel    *TLabelWidget
	toggleBtn    *TButtonWidget
	reconnectBtn *TButtonWidget
}

func NewRootView(title, version string, log zerolog.Logger) *RootView {
	return &RootView{title: title, version: version, log: log}
}

// Build constructs menus, hotkeys and the layout for an initial output of w x h.
func (rv *RootView) Build(w, h int, on Handlers) {
	if rv == nil {
		return
	}
	App.WmTitle(rv.title)
	rv.buildMenus(on)
	rv.bindHotkeys(on)

	bar := Frame()
	Grid(bar, Row(0), Column(0), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	GridColumnConfigure(App, 0, Weight(1))
	GridRowConfigure(App, 1, Weight(1))

	rv.toggleBtn = TButton(Txt("Start"), Style(theme.StylePrimaryButton), Command(on.ToggleCapture))
	Grid(rv.toggleBtn, In(bar), Row(0), Column(0), Sticky("w"), Padx("0.2m"))
	rv.reconnectBtn = TButton(Txt("Reconnect"), Style(theme.StyleDangerButton), Command(on.Reconnect), State("disabled"))
	Grid(rv.reconnectBtn, In(bar), Row(0), Column(1), Sticky("w"), Padx("0.2m"))
	rv.StatusLabel = TLabel(Txt(""), Style(theme.StyleStatusLabel), Anchor("w"))
	Grid(rv.StatusLabel, In(bar), Row(0), Column(2), Sticky("we"), Padx("0.4m"))
	GridColumnConfigure(bar.Window, 2, Weight(1))
	rv.InfoLabel = TLabel(Txt(""), Style(theme.StyleStatsLabel))
	Grid(rv.InfoLabel, In(bar), Row(0), Column(3), Sticky("e"), Padx("0.4m"))
	rv.Session = NewSessionStats(bar, 0, 4)

	rv.Mirror = NewMirrorSurface(nil, 1, 1, w, h)
}

func (rv *RootView) buildMenus(on Handlers) {
	menubar := Menu()

	capMenu := menubar.Menu()
	capMenu.AddCommand(Lbl("Start / Stop"), Command(on.ToggleCapture))
	capMenu.AddCommand(Lbl("Reconnect"), Command(on.Reconnect))
	capMenu.AddSeparator()
	capMenu.AddCommand(Lbl("Capture Region..."), Command(on.PickRegion))
	capMenu.AddCommand(Lbl("Settings..."), Command(on.OpenSettings))
	capMenu.AddSeparator()
	capMenu.AddCommand(Lbl("Exit"), Command(on.Exit))
	menubar.AddCascade(Lbl("Capture"), Mnu(capMenu))

	resMenu := menubar.Menu()
	resMenu.AddCommand(Lbl("720p (1280x720)"), Accelerator("Ctrl+1"), Command(func() { on.SetResolution(config.Res720p) }))
	resMenu.AddCommand(Lbl("1080p (1920x1080)"), Accelerator("Ctrl+2"), Command(func() { on.SetResolution(config.Res1080p) }))
	menubar.AddCascade(Lbl("Resolution"), Mnu(resMenu))

	eyeMenu := menubar.Menu()
	eyeMenu.AddCommand(Lbl("Left"), Accelerator("Ctrl+L"), Command(func() { on.SetEye(config.EyeLeft) }))
	eyeMenu.AddCommand(Lbl("Right"), Accelerator("Ctrl+R"), Command(func() { on.SetEye(config.EyeRight) }))
	eyeMenu.AddCommand(Lbl("Both"), Accelerator("Ctrl+B"), Command(func() { on.SetEye(config.EyeBoth) }))
	menubar.AddCascade(Lbl("Eye"), Mnu(eyeMenu))

	smMenu := menubar.Menu()
	smMenu.AddCommand(Lbl("Toggle Smoothing"), Accelerator("Ctrl+S"), Command(on.ToggleSmoothing))
	smMenu.AddSeparator()
	for _, s := range []int{25, 50, 75} {
		s := s
		smMenu.AddCommand(Lbl(fmt.Sprintf("Strength %d", s)), Command(func() { on.SetStrength(s) }))
	}
	menubar.AddCascade(Lbl("Smoothing"), Mnu(smMenu))

	helpMenu := menubar.Menu()
	helpMenu.AddCommand(Lbl("Hotkeys"), Command(func() {
		MessageBox(Title("Hotkeys"), Msg(HotkeyHelp), Icon("info"))
	}))
	helpMenu.AddCommand(Lbl("About"), Command(func() {
		MessageBox(Title("About"), Msg(fmt.Sprintf("%s v%s\nMirrors the headset view to the desktop.", rv.title, rv.version)), Icon("info"))
	}))
	menubar.AddCascade(Lbl("Help"), Mnu(helpMenu))

	App.Configure(Mnu(menubar))
}

func (rv *RootView) bindHotkeys(on Handlers) {
	keys := map[string]func(){
		"1": func() { on.SetResolution(config.Res720p) },
		"2": func() { on.SetResolution(config.Res1080p) },
		"l": func() { on.SetEye(config.EyeLeft) },
		"r": func() { on.SetEye(config.EyeRight) },
		"b": func() { on.SetEye(config.EyeBoth) },
		"s": on.ToggleSmoothing,
	}
	for k, f := range keys {
		Bind(App, "<Control-Key-"+k+">", Command(f))
	}
}

// SetStatus shows or blanks the status line.
func (rv *RootView) SetStatus(text string, visible bool) {
	if rv == nil || rv.StatusLabel == nil {
		return
	}
	if !visible {
		text = ""
	}
	rv.StatusLabel.Configure(Txt(text))
}

func (rv *RootView) SetReconnectVisible(b bool) {
	if rv == nil || rv.reconnectBtn == nil {
		return
	}
	state := "disabled"
	if b {
		state = "normal"
	}
	rv.reconnectBtn.Configure(State(state))
}

func (rv *RootView) SetCapturing(b bool) {
	if rv == nil || rv.toggleBtn == nil {
		return
	}
	if b {
		rv.toggleBtn.Configure(Txt("Stop"))
		return
	}
	rv.toggleBtn.Configure(Txt("Start"))
}

// UpdateMirror proxies to the mirror surface.
func (rv *RootView) UpdateMirror(img image.Image) {
	if rv != nil && rv.Mirror != nil {
		rv.Mirror.UpdateMirror(img)
	}
}

// PreviewReset clears the mirror surface.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Mirror != nil {
		rv.Mirror.Reset()
	}
}

// SetSession updates session, total and rate labels.
func (rv *RootView) SetSession(session, total time.Duration, fps float64) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
	rv.Session.SetRate(fps)
}

// ShowSettings summarises the active settings next to the status line.
func (rv *RootView) ShowSettings(c config.Config) {
	if rv == nil || rv.InfoLabel == nil {
		return
	}
	sm := "off"
	if c.SmoothingEnabled {
		sm = fmt.Sprintf("%d%%", c.SmoothingStrength)
	}
	rv.InfoLabel.Configure(Txt(fmt.Sprintf("%s | %s | smoothing %s", c.Resolution, c.EyeSelection, sm)))
}

// ResizeWindow sets the window size, keeping its position, and rescales the
// mirror surface to the space below the toolbar.
func (rv *RootView) ResizeWindow(w, h int) {
	if rv == nil {
		return
	}
	WmGeometry(App, fmt.Sprintf("%dx%d", w, h))
	if rv.Mirror != nil {
		rv.Mirror.SetTargetSize(w, h-chrome)
	}
}

// chrome matches the toolbar allowance the settings presenter adds.
const chrome = 40

// MoveWindow places the window at x, y.
func (rv *RootView) MoveWindow(x, y int) {
	WmGeometry(App, fmt.Sprintf("+%d+%d", x, y))
}

// WindowPosition reads the current top-left corner from the window manager.
func (rv *RootView) WindowPosition() (x, y int, ok bool) {
	r, ok := parseGeometry(WmGeometry(App))
	if !ok {
		return 0, 0, false
	}
	return r.Min.X, r.Min.Y, true
}
