package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Minimal color palette
var (
	DimColor     = lipgloss.Color("#6c6c6c")
	TextColor    = lipgloss.Color("#e0e0e0")
	AccentColor  = lipgloss.Color("#7aa2f7")
	ErrorColor   = lipgloss.Color("#f7768e")
	OkColor      = lipgloss.Color("#9ece6a")
	WarnColor    = lipgloss.Color("#e0af68")
	BorderColor  = lipgloss.Color("#3b4261")
	FocusedColor = AccentColor
)

// Pane frames
var (
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(FocusedColor)

	PaneTitleStyle = lipgloss.NewStyle().
			Foreground(DimColor).
			Bold(true)
)

// Sidebar tree
var (
	TreeDirStyle = lipgloss.NewStyle().
			Foreground(AccentColor)

	TreeRequestStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	TreeCursorStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(lipgloss.Color("#283457"))

	TreeDirtyStyle = lipgloss.NewStyle().
			Foreground(WarnColor)
)

// Method badges, one color per verb like hac's sidebar
var methodStyles = map[string]lipgloss.Style{
	"GET":    lipgloss.NewStyle().Foreground(OkColor),
	"POST":   lipgloss.NewStyle().Foreground(AccentColor),
	"PUT":    lipgloss.NewStyle().Foreground(WarnColor),
	"PATCH":  lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")),
	"DELETE": lipgloss.NewStyle().Foreground(ErrorColor),
}

// Editor + response panes
var (
	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	FieldValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	HeaderOffStyle = lipgloss.NewStyle().
			Foreground(DimColor).
			Strikethrough(true)

	StatusOkStyle = lipgloss.NewStyle().
			Foreground(OkColor).
			Bold(true)

	StatusErrStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)
)

// Footer
var (
	FooterStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	ShortcutKeyStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	ShortcutDescStyle = lipgloss.NewStyle().
				Foreground(DimColor)

	SyncCleanStyle = lipgloss.NewStyle().
			Foreground(OkColor)

	SyncDirtyStyle = lipgloss.NewStyle().
			Foreground(WarnColor)

	SyncFlushStyle = lipgloss.NewStyle().
			Foreground(AccentColor)
)

func methodStyle(m string) lipgloss.Style {
	if s, ok := methodStyles[m]; ok {
		return s
	}
	return TreeRequestStyle
}
