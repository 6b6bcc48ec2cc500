package view

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// PanelValues are the fields editable in the settings dialog.
type PanelValues struct {
	Strength int
	Region   image.Rectangle
}

// ConfigPanel is the settings dialog for values that have no menu entry: a
// free smoothing strength and the screen capture region.
type ConfigPanel interface {
	Open(c config.Config)
	SetEditable(enabled bool)
}

type configPanel struct {
	log      zerolog.Logger
	onApply  func(PanelValues)
	win      *ToplevelWidget
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget
	editable bool
}

// NewConfigPanel creates the dialog manager; onApply receives parsed values.
func NewConfigPanel(onApply func(PanelValues), log zerolog.Logger) ConfigPanel {
	return &configPanel{log: log, onApply: onApply, editable: true}
}

func (v *configPanel) Open(c config.Config) {
	if v.win != nil {
		return
	}
	win := App.Toplevel()
	win.WmTitle("Settings")
	WmProtocol(win.Window, "WM_DELETE_WINDOW", v.close)
	v.win = win
	v.widgets = make(map[string]*TextWidget)
	row := 0
	makeRow := func(id, label, value string) {
		lbl := win.Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := win.Text(Height(1), Width(10))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("strength", "Smoothing Strength (0-100)", strconv.Itoa(c.SmoothingStrength))
	makeRow("regionX", "Region X", strconv.Itoa(c.Capture.RegionX))
	makeRow("regionY", "Region Y", strconv.Itoa(c.Capture.RegionY))
	makeRow("regionW", "Region Width (0 = full screen)", strconv.Itoa(c.Capture.RegionW))
	makeRow("regionH", "Region Height", strconv.Itoa(c.Capture.RegionH))
	v.applyBtn = win.Button(Txt("Apply"), Command(v.apply))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	Bind(win, "<Escape>", Command(v.close))
	v.SetEditable(v.editable)
}

func (v *configPanel) SetEditable(enabled bool) {
	v.editable = enabled
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) close() {
	if v.win != nil {
		Destroy(v.win)
		v.win, v.applyBtn, v.widgets = nil, nil, nil
	}
}

func (v *configPanel) text(id string) string {
	w := v.widgets[id]
	if w == nil {
		return ""
	}
	return strings.Join(w.Get("1.0", END), "")
}

func (v *configPanel) apply() {
	fields := map[string]string{}
	for id := range v.widgets {
		fields[id] = v.text(id)
	}
	vals, err := parsePanel(fields)
	if err != nil {
		v.log.Warn().Err(err).Msg("settings dialog")
		return
	}
	if v.onApply != nil {
		v.onApply(vals)
	}
	v.close()
}

func parsePanel(fields map[string]string) (PanelValues, error) {
	var out PanelValues
	nums := map[string]int{}
	for _, id := range []string{"strength", "regionX", "regionY", "regionW", "regionH"} {
		n, err := strconv.Atoi(strings.TrimSpace(fields[id]))
		if err != nil {
			return out, fmt.Errorf("%s: not a number: %q", id, strings.TrimSpace(fields[id]))
		}
		nums[id] = n
	}
	if s := nums["strength"]; s < 0 || s > 100 {
		return out, fmt.Errorf("strength %d outside 0-100", s)
	}
	out.Strength = nums["strength"]
	if w, h := nums["regionW"], nums["regionH"]; w > 0 && h > 0 {
		x, y := nums["regionX"], nums["regionY"]
		out.Region = image.Rect(x, y, x+w, y+h)
	}
	return out, nil
}
