package view

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/soocke/sensesafe-go/config"
	"github.com/soocke/sensesafe-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the configuration form widgets and apply logic.
// It owns its widgets and writes back into *config.Config on ApplyChanges.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges() // parses widget text into underlying config and persists
}

type configPanel struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	onApplied func(*config.Config)
	applyBtn  *ButtonWidget
	widgets   map[string]*TextWidget // keyed by field id
}

// NewConfigPanel creates the view bound to cfg. onApplied runs after a
// successful apply with the updated config.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onApplied func(*config.Config)) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, onApplied: onApplied, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(startRow int) (row int) {
	c := v.cfg
	row = startRow
	makeRow := func(id, label, value string, width int) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(width))
		Grid(w, Row(row), Column(1), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	for _, name := range config.ServiceNames {
		svc, _ := c.Service(name)
		title := strings.ToUpper(name[:1]) + name[1:]
		makeRow(model.URLField(name), title+" URL", svc.URL, 40)
		makeRow(model.KeyField(name), title+" Key", model.MaskKey(svc.Key), 24)
	}
	makeRow(model.FieldMinConfidence, "Min Confidence (0-1)", fmt.Sprintf("%.2f", c.MinConfidence), 8)
	makeRow(model.FieldRequiredStreak, "Required Streak", fmt.Sprintf("%d", c.RequiredStreak), 8)
	makeRow(model.FieldCooldownMillis, "Cooldown ms", fmt.Sprintf("%d", c.CooldownMillis), 8)
	makeRow(model.FieldTemplateThreshold, "Sign Match Threshold", fmt.Sprintf("%.3f", c.TemplateThreshold), 8)
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
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

func (v *configPanel) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	fields := make(map[string]string, len(v.widgets))
	for id, w := range v.widgets {
		fields[id] = v.text(w)
	}
	cfg, err := model.ApplyConfigForm(v.cfg, fields)
	if err != nil {
		if v.logger != nil {
			v.logger.Error("config rejected", "error", err)
		}
		return
	}
	*v.cfg = cfg
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath, "services_configured", v.cfg.ConfiguredCount())
	}
	if v.onApplied != nil {
		v.onApplied(v.cfg)
	}
}
