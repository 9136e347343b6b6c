package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemePreference(t *testing.T) {
	old := lipgloss.HasDarkBackground()
	t.Cleanup(func() { lipgloss.SetHasDarkBackground(old) })

	t.Setenv("COLORFGBG", "")
	t.Setenv("COURSEFORGE_TUI_THEME", "light")
	applyThemePreference()
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("COURSEFORGE_TUI_THEME", "dark")
	applyThemePreference()
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}

	t.Setenv("COURSEFORGE_TUI_THEME", "")
	t.Setenv("COLORFGBG", "0;15")
	applyThemePreference()
	if got := markdownStyle(); got != "light" {
		t.Fatalf("COLORFGBG with a light background: got %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if got := renderMarkdown("   \n", 40); got != "" {
		t.Fatalf("blank input should render empty, got %q", got)
	}
	out := renderMarkdown("# Setup\n\nInstall the toolchain.", 40)
	if !strings.Contains(out, "Setup") || !strings.Contains(out, "toolchain") {
		t.Fatalf("unexpected render:\n%s", out)
	}
}
