package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"courseforge/internal/config"
	"courseforge/internal/logger"
	"courseforge/internal/session"
	"courseforge/internal/tui"
)

func newEditCmd(app *App) *cobra.Command {
	var courseID string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the interactive structure editor for a course",
		Long: "Open the interactive structure editor. Edits are autosaved after a short pause;\n" +
			"ctrl+s saves now, ctrl+z/ctrl+y undo and redo. Logs go to a file while the\n" +
			"editor owns the terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := editLogger(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log = log

			s, closeSession, err := openSession(cmd.Context(), app, courseID, log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession()

			log.Info("editor started", "courseId", s.CourseID())
			if err := tui.Run(cmd.Context(), s, log); err != nil {
				return writeErr(cmd, err)
			}
			if err := finishEdit(cmd.Context(), s); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	return cmd
}

// finishEdit saves whatever is still pending. Errors the editor already showed,
// or that the user dismissed, do not fail the command.
func finishEdit(ctx context.Context, s *session.Session) error {
	return s.SaveNow(ctx)
}

// editLogger writes to cfg.Log.File, or courseforge.log next to the config.
func editLogger(app *App) (*logger.Logger, error) {
	cfg := app.config()
	path := cfg.Log.File
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "courseforge.log")
	}
	mode := cfg.Log.Mode
	if mode == "" {
		mode = "prod"
	}
	return logger.NewWithOutput(mode, path)
}
