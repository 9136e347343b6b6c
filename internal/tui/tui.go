package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"courseforge/internal/logger"
	"courseforge/internal/session"
)

// Run opens the editor on an already-open session and blocks until the user
// quits or ctx is cancelled. Pending edits are flushed on quit.
func Run(ctx context.Context, s *session.Session, log *logger.Logger) error {
	applyColorProfilePreference()
	applyThemePreference()

	m := newEditorModel(ctx, s, log)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
