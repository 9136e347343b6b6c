package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorError      lipgloss.TerminalColor = ac("160", "203")
	colorWarning    lipgloss.TerminalColor = ac("130", "214")
	colorOK         lipgloss.TerminalColor = ac("28", "114")
	colorBorder     lipgloss.TerminalColor = ac("250", "240")
)

var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleModule   = lipgloss.NewStyle().Bold(true)
	styleCursor   = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
	styleError    = lipgloss.NewStyle().Foreground(colorError)
	styleWarning  = lipgloss.NewStyle().Foreground(colorWarning)
	styleOK       = lipgloss.NewStyle().Foreground(colorOK)
	stylePane     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	styleSelected = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)

func styleMuted() lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorMuted)
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts TERM/COLORTERM
// over termenv's detection when they claim more colors.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(os.Getenv("TERM"))
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference: COURSEFORGE_TUI_THEME=light|dark, then the COLORFGBG hint.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("COURSEFORGE_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}

func markdownStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
