package theme

// Theming for the exit detection window. A high-contrast palette is the
// default; the standard palette is available for sighted helpers.

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// PaletteSnapshot represents resolved colors for the active mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Text      string
	Primary   string
	Danger    string
	Banner    string
	BannerInk string
	Muted     string
}

var (
	highContrast = PaletteSnapshot{
		AppBg:     "#000000",
		Surface:   "#000000",
		Text:      "#ffffff",
		Primary:   "#ffd600",
		Danger:    "#ff5252",
		Banner:    "#00e676",
		BannerInk: "#000000",
		Muted:     "#bdbdbd",
	}
	standard = PaletteSnapshot{
		AppBg:     "#f7f9fb",
		Surface:   "#ffffff",
		Text:      "#1e293b",
		Primary:   "#2563eb",
		Danger:    "#dc2626",
		Banner:    "#10b981",
		BannerInk: "#ffffff",
		Muted:     "#64748b",
	}
)

// style names used with Style("primary.TButton") etc.
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleExitBanner    = "exit.TLabel"
	StyleBannerIdle    = "idle.TLabel"
	StyleStatusLabel   = "status.TLabel"
)

// BannerFont is the large font of the exit banner.
func BannerFont() Opt { return Font("Helvetica", 28, "bold") }

// StatusFont is used for the scan status line.
func StatusFont() Opt { return Font("Helvetica", 16) }

var highContrastMode = true

// CurrentPalette returns colors for the current mode.
func CurrentPalette() PaletteSnapshot {
	if highContrastMode {
		return highContrast
	}
	return standard
}

// InitStyles (re)applies styles for the current mode.
func InitStyles() { applyStyles(CurrentPalette()) }

// SetHighContrast switches mode and reapplies styles. Returns the new mode.
func SetHighContrast(on bool) bool {
	highContrastMode = on
	applyStyles(CurrentPalette())
	return highContrastMode
}

// ToggleHighContrast flips the mode.
func ToggleHighContrast() bool { return SetHighContrast(!highContrastMode) }

// IsHighContrast reports the current mode.
func IsHighContrast() bool { return highContrastMode }

func applyStyles(p PaletteSnapshot) {
	_ = ActivateTheme("azure light") // baseline metrics
	App.Configure(Background(p.AppBg))

	StyleConfigure(StylePrimaryButton,
		Background(p.Primary),
		Foreground(p.BannerInk),
		Padding("8p 6p"),
		Borderwidth(2),
		Relief("ridge"),
	)
	StyleConfigure(StyleDangerButton,
		Background(p.Danger),
		Foreground("white"),
		Padding("8p 6p"),
		Borderwidth(2),
		Relief("ridge"),
	)
	StyleConfigure(StyleExitBanner,
		Foreground(p.BannerInk),
		Background(p.Banner),
		BannerFont(),
		Padding("8p 4p"),
		Anchor("center"),
	)
	StyleConfigure(StyleBannerIdle,
		Foreground(p.Muted),
		Background(p.Surface),
		BannerFont(),
		Padding("8p 4p"),
		Anchor("center"),
	)
	StyleConfigure(StyleStatusLabel,
		Foreground(p.Text),
		Background(p.Surface),
		StatusFont(),
		Padding("4p 2p"),
	)
}
