package view

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// SelectionOverlay is a transparent, resizable window the user drags over the
// desktop to choose the region mirrored by the screen backend.
type SelectionOverlay interface {
	OpenOrFocus()
	Clear()
}

type selectionOverlay struct {
	log      zerolog.Logger
	initial  image.Rectangle
	screen   func() (image.Rectangle, error)
	onSelect func(image.Rectangle)
	win      *ToplevelWidget
}

// NewSelectionOverlay creates the overlay manager. initial is the saved
// region (empty for none); onSelect receives the confirmed rectangle, or an
// empty one on Clear.
func NewSelectionOverlay(initial image.Rectangle, screen func() (image.Rectangle, error), onSelect func(image.Rectangle), log zerolog.Logger) SelectionOverlay {
	return &selectionOverlay{log: log, initial: initial, screen: screen, onSelect: onSelect}
}

func (v *selectionOverlay) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background("#008080"))
	win.WmTitle("Capture Region")
	v.win = win
	WmGeometry(win.Window, v.startGeometry())
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-alpha", 0.5)
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(1))
	center := win.Frame(Background("#008080"))
	Grid(center, Row(0), Column(0), Sticky("nsew"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Sticky("we"))
	confirm := win.Button(Txt("Confirm [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.cancel))
	Grid(cancel, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Full Screen"), Command(v.Clear))
	Grid(clear, In(controls), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.cancel))
	WmProtocol(win.Window, "WM_DELETE_WINDOW", v.cancel)
}

// Clear drops the saved region so the whole primary display is mirrored.
func (v *selectionOverlay) Clear() {
	v.initial = image.Rectangle{}
	if v.onSelect != nil {
		v.onSelect(image.Rectangle{})
	}
	v.destroy()
}

func (v *selectionOverlay) confirm() {
	if v.win == nil {
		return
	}
	geom := WmGeometry(v.win.Window)
	rect, ok := parseGeometry(geom)
	if !ok {
		v.log.Warn().Str("geometry", geom).Msg("unparseable overlay geometry")
		v.destroy()
		return
	}
	v.initial = rect
	if v.onSelect != nil {
		v.onSelect(rect)
	}
	v.destroy()
}

func (v *selectionOverlay) cancel() { v.destroy() }

func (v *selectionOverlay) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

// startGeometry reopens on the saved region, or centres a window covering
// two thirds of the screen.
func (v *selectionOverlay) startGeometry() string {
	if !v.initial.Empty() {
		r := v.initial
		return fmt.Sprintf("%dx%d+%d+%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
	}
	screen := image.Rect(0, 0, 1920, 1080)
	if v.screen != nil {
		if r, err := v.screen(); err == nil && !r.Empty() {
			screen = r
		} else if err != nil {
			v.log.Debug().Err(err).Msg("screen bounds")
		}
	}
	return centeredGeometry(screen)
}

func centeredGeometry(screen image.Rectangle) string {
	w, h := max(screen.Dx()*2/3, 1), max(screen.Dy()*5/9, 1)
	x := screen.Min.X + (screen.Dx()-w)/2
	y := screen.Min.Y + (screen.Dy()-h)/2
	return fmt.Sprintf("%dx%d+%d+%d", w, h, x, y)
}

// geomRe matches window geometry strings in the format "WIDTHxHEIGHT+X+Y"
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)\+(-?\d+)\+(-?\d+)$`)

// parseGeometry parses a Tk geometry string and returns the corresponding rectangle.
func parseGeometry(g string) (image.Rectangle, bool) {
	g = strings.TrimSpace(g)
	m := geomRe.FindStringSubmatch(g)
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, _ := strconv.Atoi(m[3])
	y, _ := strconv.Atoi(m[4])
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}
