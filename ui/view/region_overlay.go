package view

import (
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/vova616/screenshot"

	"github.com/soocke/sensesafe-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// RegionOverlay is a see-through window the user drags over the part of the
// screen the desktop camera should watch. ActiveRect is read by the sensor
// goroutine.
type RegionOverlay interface {
	OpenOrFocus()
	Clear()
	ActiveRect() *image.Rectangle
}

const overlayKey = "#008080"

type regionOverlay struct {
	logger  *slog.Logger
	cfg     *config.Config
	cfgPath string
	region  atomic.Pointer[image.Rectangle]
	win     *ToplevelWidget
}

// NewRegionOverlay creates the overlay manager seeded from the saved region.
func NewRegionOverlay(cfg *config.Config, cfgPath string, logger *slog.Logger) RegionOverlay {
	v := &regionOverlay{logger: logger, cfg: cfg, cfgPath: cfgPath}
	if cfg != nil {
		v.region.Store(cfg.Region())
	}
	return v
}

func (v *regionOverlay) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background(overlayKey))
	win.WmTitle("Camera Region")
	v.win = win
	screenW, screenH := screenSize()
	initW, initH := max(screenW*2/3, 1), max(screenH*5/9, 1)
	x, y := (screenW-initW)/2, (screenH-initH)/2
	if r := v.ActiveRect(); r != nil {
		initW, initH, x, y = r.Dx(), r.Dy(), r.Min.X, r.Min.Y
	}
	WmGeometry(win.Window, fmt.Sprintf("%dx%d+%d+%d", initW, initH, x, y))
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-toolwindow", true)
	WmAttributes(win.Window, "-transparentcolor", overlayKey)
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(0))
	GridColumnConfigure(win.Window, 1, Weight(1))
	GridColumnConfigure(win.Window, 2, Weight(0))
	left := win.Frame(Width(4), Background("#FFD600"))
	Grid(left, Row(0), Column(0), Sticky("ns"))
	center := win.Frame(Background(overlayKey))
	Grid(center, Row(0), Column(1), Sticky("nsew"))
	right := win.Frame(Width(4), Background("#FFD600"))
	Grid(right, Row(0), Column(2), Sticky("ns"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Columnspan(3), Sticky("we"))
	confirm := win.Button(Txt("Watch This Area [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.cancel))
	Grid(cancel, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Whole Screen"), Command(v.Clear))
	Grid(clear, In(controls), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.cancel))
}

// Clear switches back to the whole screen.
func (v *regionOverlay) Clear() {
	v.region.Store(nil)
	v.persist(image.Rectangle{})
	v.destroy()
}

func (v *regionOverlay) confirm() {
	if v.win == nil {
		return
	}
	if rect, ok := parseGeometry(WmGeometry(v.win.Window)); ok {
		v.region.Store(&rect)
		v.persist(rect)
		if v.logger != nil {
			v.logger.Info("camera region", "rect", rect.String())
		}
	}
	v.destroy()
}

func (v *regionOverlay) persist(r image.Rectangle) {
	if v.cfg == nil {
		return
	}
	v.cfg.RegionX, v.cfg.RegionY = r.Min.X, r.Min.Y
	v.cfg.RegionW, v.cfg.RegionH = r.Dx(), r.Dy()
	if err := v.cfg.Save(v.cfgPath); err != nil && v.logger != nil {
		v.logger.Error("config save failed", "error", err)
	}
}

func (v *regionOverlay) cancel() { v.destroy() }

func (v *regionOverlay) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

func (v *regionOverlay) ActiveRect() *image.Rectangle {
	r := v.region.Load()
	if r == nil || r.Empty() {
		return nil
	}
	cp := *r
	return &cp
}

// screenSize returns the primary display size, or 1920x1080 when it cannot
// be queried.
func screenSize() (int, int) {
	r, err := screenshot.ScreenRect()
	if err != nil || r.Empty() {
		return 1920, 1080
	}
	return r.Dx(), r.Dy()
}

// geomRe matches window geometry strings in the format "WIDTHxHEIGHT+X+Y"
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)\+(-?\d+)\+(-?\d+)$`)

// parseGeometry parses a Tk geometry string and returns the corresponding rectangle.
func parseGeometry(g string) (image.Rectangle, bool) {
	m := geomRe.FindStringSubmatch(strings.TrimSpace(g))
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
