package styles

import "github.com/charmbracelet/lipgloss"

// Color palette, replaced wholesale by ApplyThemeColors.
var (
	// Brand colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#3B82F6") // Blue
	Accent    = lipgloss.Color("#F59E0B") // Amber

	// Status colors
	Success = lipgloss.Color("#10B981") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	Info    = lipgloss.Color("#3B82F6") // Blue

	// Text colors
	TextPrimary   = lipgloss.Color("#F9FAFB")
	TextSecondary = lipgloss.Color("#9CA3AF")
	TextMuted     = lipgloss.Color("#6B7280")
	TextSubtle    = lipgloss.Color("#4B5563")

	// Background colors
	BgPrimary   = lipgloss.Color("#111827")
	BgSecondary = lipgloss.Color("#1F2937")
	BgTertiary  = lipgloss.Color("#374151")

	// Border colors
	BorderNormal = lipgloss.Color("#374151")
	BorderActive = lipgloss.Color("#7C3AED")

	ButtonHoverColor      = lipgloss.Color("#9D174D")
	ToastSuccessTextColor = lipgloss.Color("#000000")
	ToastWarningTextColor = lipgloss.Color("#000000")
	ToastErrorTextColor   = lipgloss.Color("#FFFFFF")

	// Glamour style name for note previews
	CurrentMarkdownTheme = "dark"
)

// Text styles
var (
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	KeyHint  lipgloss.Style
	Logo     lipgloss.Style
)

// Status and toast styles
var (
	StatusCompleted lipgloss.Style
	StatusModified  lipgloss.Style
	StatusBlocked   lipgloss.Style
	StatusPending   lipgloss.Style

	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style
)

// List item styles
var (
	ListItemNormal   lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemFocused  lipgloss.Style
	ListCursor       lipgloss.Style
)

// Note card styles
var (
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardTitle    lipgloss.Style
	CardBody     lipgloss.Style
	CardMeta     lipgloss.Style
	// CardPending marks a card whose optimistic change has not been confirmed.
	CardPending lipgloss.Style
)

// Panels, bars and forms
var (
	PanelActive   lipgloss.Style
	PanelInactive lipgloss.Style

	Header        lipgloss.Style
	Footer        lipgloss.Style
	BarTitle      lipgloss.Style
	BarText       lipgloss.Style
	BarChip       lipgloss.Style
	BarChipActive lipgloss.Style

	FieldLabel lipgloss.Style
	FieldError lipgloss.Style
)

// Modal and button styles
var (
	ModalBox   lipgloss.Style
	ModalTitle lipgloss.Style

	Button              lipgloss.Style
	ButtonFocused       lipgloss.Style
	ButtonHover         lipgloss.Style
	ButtonDanger        lipgloss.Style
	ButtonDangerFocused lipgloss.Style
	ButtonDangerHover   lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles recreates all lipgloss styles with current colors.
func rebuildStyles() {
	Title = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	Subtitle = lipgloss.NewStyle().Foreground(TextSecondary)
	Body = lipgloss.NewStyle().Foreground(TextPrimary)
	Muted = lipgloss.NewStyle().Foreground(TextMuted)
	Subtle = lipgloss.NewStyle().Foreground(TextSubtle)
	KeyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgTertiary).
		Padding(0, 1)
	Logo = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	StatusCompleted = lipgloss.NewStyle().Foreground(Success)
	StatusModified = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	StatusBlocked = lipgloss.NewStyle().Foreground(Error)
	StatusPending = lipgloss.NewStyle().Foreground(TextMuted)

	ToastSuccess = lipgloss.NewStyle().
		Background(Success).
		Foreground(ToastSuccessTextColor).
		Bold(true).
		Padding(0, 1)
	ToastWarning = lipgloss.NewStyle().
		Background(Warning).
		Foreground(ToastWarningTextColor).
		Bold(true).
		Padding(0, 1)
	ToastError = lipgloss.NewStyle().
		Background(Error).
		Foreground(ToastErrorTextColor).
		Bold(true).
		Padding(0, 1)

	ListItemNormal = lipgloss.NewStyle().Foreground(TextPrimary)
	ListItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(BgTertiary)
	ListItemFocused = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Primary)
	ListCursor = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderNormal).
		Padding(0, 1)
	CardSelected = Card.BorderForeground(BorderActive)
	CardTitle = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	CardBody = lipgloss.NewStyle().Foreground(TextSecondary)
	CardMeta = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	CardPending = lipgloss.NewStyle().Foreground(Accent)

	PanelActive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderActive).
		Padding(0, 1)
	PanelInactive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderNormal).
		Padding(0, 1)

	Header = lipgloss.NewStyle().Background(BgSecondary)
	Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgSecondary)
	BarTitle = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	BarText = lipgloss.NewStyle().Foreground(TextMuted)
	BarChip = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgTertiary).
		Padding(0, 1)
	BarChipActive = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Primary).
		Padding(0, 1).
		Bold(true)

	FieldLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	FieldError = lipgloss.NewStyle().Foreground(Error)

	ModalBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Background(BgSecondary).
		Padding(1, 2)
	ModalTitle = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true).
		MarginBottom(1)

	Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(BgTertiary).
		Padding(0, 2)
	ButtonFocused = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Primary).
		Padding(0, 2).
		Bold(true)
	ButtonHover = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(ButtonHoverColor).
		Padding(0, 2)

	// Danger buttons keep fixed reds across themes.
	ButtonDanger = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FCA5A5")).
		Background(lipgloss.Color("#7F1D1D")).
		Padding(0, 2)
	ButtonDangerFocused = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#DC2626")).
		Padding(0, 2).
		Bold(true)
	ButtonDangerHover = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#B91C1C")).
		Padding(0, 2)
}
