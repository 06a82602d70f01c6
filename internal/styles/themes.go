package styles

import (
	"regexp"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// themeMu protects access to themeRegistry and currentTheme
var themeMu sync.RWMutex

// hexColorRegex validates hex color codes (#RRGGBB or #RRGGBBAA with alpha)
var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}([0-9A-Fa-f]{2})?$`)

// ColorPalette holds all theme colors
type ColorPalette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`

	Success string `json:"success"`
	Warning string `json:"warning"`
	Error   string `json:"error"`
	Info    string `json:"info"`

	TextPrimary   string `json:"textPrimary"`
	TextSecondary string `json:"textSecondary"`
	TextMuted     string `json:"textMuted"`
	TextSubtle    string `json:"textSubtle"`

	BgPrimary   string `json:"bgPrimary"`
	BgSecondary string `json:"bgSecondary"`
	BgTertiary  string `json:"bgTertiary"`

	BorderNormal string `json:"borderNormal"`
	BorderActive string `json:"borderActive"`

	ButtonHover string `json:"buttonHover"`

	// Toast foregrounds. Empty picks black or white by contrast.
	ToastSuccessText string `json:"toastSuccessText"`
	ToastWarningText string `json:"toastWarningText"`
	ToastErrorText   string `json:"toastErrorText"`

	MarkdownTheme string `json:"markdownTheme"` // Glamour style name
}

// Theme represents a complete theme configuration
type Theme struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Colors      ColorPalette `json:"colors"`
}

// Built-in themes
var (
	DefaultTheme = Theme{
		Name:        "default",
		DisplayName: "Default Dark",
		Colors: ColorPalette{
			Primary:   "#7C3AED", // Purple
			Secondary: "#3B82F6", // Blue
			Accent:    "#F59E0B", // Amber

			Success: "#10B981",
			Warning: "#F59E0B",
			Error:   "#EF4444",
			Info:    "#3B82F6",

			TextPrimary:   "#F9FAFB",
			TextSecondary: "#9CA3AF",
			TextMuted:     "#6B7280",
			TextSubtle:    "#4B5563",

			BgPrimary:   "#111827",
			BgSecondary: "#1F2937",
			BgTertiary:  "#374151",

			BorderNormal: "#374151",
			BorderActive: "#7C3AED",

			ButtonHover:      "#9D174D",
			ToastSuccessText: "#000000",
			ToastWarningText: "#000000",
			ToastErrorText:   "#FFFFFF",

			MarkdownTheme: "dark",
		},
	}

	DraculaTheme = Theme{
		Name:        "dracula",
		DisplayName: "Dracula",
		Colors: ColorPalette{
			Primary:   "#BD93F9", // Purple
			Secondary: "#8BE9FD", // Cyan
			Accent:    "#FFB86C", // Orange

			Success: "#50FA7B",
			Warning: "#FFB86C",
			Error:   "#FF5555",
			Info:    "#8BE9FD",

			TextPrimary:   "#F8F8F2",
			TextSecondary: "#BFBFBF",
			TextMuted:     "#6272A4",
			TextSubtle:    "#44475A",

			BgPrimary:   "#282A36",
			BgSecondary: "#343746",
			BgTertiary:  "#44475A",

			BorderNormal: "#44475A",
			BorderActive: "#BD93F9",

			ButtonHover:      "#FF79C6", // Pink
			ToastSuccessText: "#282A36",
			ToastWarningText: "#282A36",
			ToastErrorText:   "#F8F8F2",

			MarkdownTheme: "dracula",
		},
	}

	PaperTheme = Theme{
		Name:        "paper",
		DisplayName: "Paper Light",
		Colors: ColorPalette{
			Primary:   "#4F46E5",
			Secondary: "#2563EB",
			Accent:    "#B45309",

			Success: "#15803D",
			Warning: "#D97706",
			Error:   "#B91C1C",
			Info:    "#2563EB",

			TextPrimary:   "#111827",
			TextSecondary: "#374151",
			TextMuted:     "#6B7280",
			TextSubtle:    "#9CA3AF",

			BgPrimary:   "#FFFFFF",
			BgSecondary: "#F3F4F6",
			BgTertiary:  "#E5E7EB",

			BorderNormal: "#D1D5DB",
			BorderActive: "#4F46E5",

			ButtonHover: "#C7D2FE",

			MarkdownTheme: "light",
		},
	}
)

// themeRegistry holds all available themes
var themeRegistry = map[string]Theme{
	"default": DefaultTheme,
	"dracula": DraculaTheme,
	"paper":   PaperTheme,
}

// currentTheme tracks the active theme name
var currentTheme = "default"

// IsValidHexColor checks if a string is a valid hex color code (#RRGGBB or #RRGGBBAA)
func IsValidHexColor(hex string) bool {
	return hexColorRegex.MatchString(hex)
}

// IsValidTheme checks if a theme name exists in the registry
func IsValidTheme(name string) bool {
	themeMu.RLock()
	defer themeMu.RUnlock()
	_, ok := themeRegistry[name]
	return ok
}

// GetTheme returns a theme by name, or the default theme if not found
func GetTheme(name string) Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	if theme, ok := themeRegistry[name]; ok {
		return theme
	}
	return DefaultTheme
}

// GetCurrentThemeName returns the name of the currently active theme
func GetCurrentThemeName() string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// ListThemes returns the names of all available themes in sorted order
func ListThemes() []string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	names := make([]string, 0, len(themeRegistry))
	for name := range themeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterTheme adds a custom theme to the registry
func RegisterTheme(theme Theme) {
	themeMu.Lock()
	defer themeMu.Unlock()
	themeRegistry[theme.Name] = theme
}

// ApplyTheme applies a theme by name, updating all style variables
func ApplyTheme(name string) {
	ApplyThemeWithOverrides(name, nil)
}

// ApplyThemeWithOverrides applies a theme with color overrides from config.
// Unknown theme names fall back to the default theme.
func ApplyThemeWithOverrides(name string, overrides map[string]string) {
	if !IsValidTheme(name) {
		name = DefaultTheme.Name
	}
	theme := GetTheme(name)
	for key, value := range overrides {
		applySingleOverride(&theme.Colors, key, value)
	}

	ApplyThemeColors(theme)
	themeMu.Lock()
	currentTheme = name
	themeMu.Unlock()
}

func applySingleOverride(palette *ColorPalette, key, value string) {
	// markdownTheme is a name, not a color
	if key != "markdownTheme" && !IsValidHexColor(value) {
		return
	}

	switch key {
	case "primary":
		palette.Primary = value
	case "secondary":
		palette.Secondary = value
	case "accent":
		palette.Accent = value
	case "success":
		palette.Success = value
	case "warning":
		palette.Warning = value
	case "error":
		palette.Error = value
	case "info":
		palette.Info = value
	case "textPrimary":
		palette.TextPrimary = value
	case "textSecondary":
		palette.TextSecondary = value
	case "textMuted":
		palette.TextMuted = value
	case "textSubtle":
		palette.TextSubtle = value
	case "bgPrimary":
		palette.BgPrimary = value
	case "bgSecondary":
		palette.BgSecondary = value
	case "bgTertiary":
		palette.BgTertiary = value
	case "borderNormal":
		palette.BorderNormal = value
	case "borderActive":
		palette.BorderActive = value
	case "buttonHover":
		palette.ButtonHover = value
	case "toastSuccessText":
		palette.ToastSuccessText = value
	case "toastWarningText":
		palette.ToastWarningText = value
	case "toastErrorText":
		palette.ToastErrorText = value
	case "markdownTheme":
		palette.MarkdownTheme = value
	}
}

// ApplyThemeColors updates all style package variables from a theme.
//
// Not safe for concurrent readers: call it before the TUI starts or from
// the Bubble Tea update loop.
func ApplyThemeColors(theme Theme) {
	c := theme.Colors

	Primary = lipgloss.Color(c.Primary)
	Secondary = lipgloss.Color(c.Secondary)
	Accent = lipgloss.Color(c.Accent)

	Success = lipgloss.Color(c.Success)
	Warning = lipgloss.Color(c.Warning)
	Error = lipgloss.Color(c.Error)
	Info = lipgloss.Color(c.Info)

	TextPrimary = lipgloss.Color(c.TextPrimary)
	TextSecondary = lipgloss.Color(c.TextSecondary)
	TextMuted = lipgloss.Color(c.TextMuted)
	TextSubtle = lipgloss.Color(c.TextSubtle)

	BgPrimary = lipgloss.Color(c.BgPrimary)
	BgSecondary = lipgloss.Color(c.BgSecondary)
	BgTertiary = lipgloss.Color(c.BgTertiary)

	BorderNormal = lipgloss.Color(c.BorderNormal)
	BorderActive = lipgloss.Color(c.BorderActive)

	ButtonHoverColor = lipgloss.Color(c.ButtonHover)
	ToastSuccessTextColor = lipgloss.Color(textOn(c.ToastSuccessText, c.Success))
	ToastWarningTextColor = lipgloss.Color(textOn(c.ToastWarningText, c.Warning))
	ToastErrorTextColor = lipgloss.Color(textOn(c.ToastErrorText, c.Error))

	CurrentMarkdownTheme = c.MarkdownTheme
	if CurrentMarkdownTheme == "" {
		CurrentMarkdownTheme = "dark"
	}

	rebuildStyles()
}

// GetMarkdownTheme returns the current markdown rendering theme name
func GetMarkdownTheme() string {
	return CurrentMarkdownTheme
}
