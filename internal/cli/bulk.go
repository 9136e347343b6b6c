package cli

import (
	"github.com/spf13/cobra"

	"courseforge/internal/bulk"
	"courseforge/internal/mutate"
)

func newBulkCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Move, copy or delete several lessons at once",
	}
	for _, a := range []bulk.Action{bulk.ActionMove, bulk.ActionCopy, bulk.ActionDelete} {
		cmd.AddCommand(newBulkActionCmd(app, a))
	}
	return cmd
}

func newBulkActionCmd(app *App, action bulk.Action) *cobra.Command {
	var courseID, target string
	use := string(action) + " <lesson-id>..."
	if action.NeedsTarget() {
		use = string(action) + " --to <module-id> <lesson-id>..."
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: "Bulk " + string(action) + " lessons (every lesson is attempted; successes stay)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), app, courseID, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			for _, id := range args {
				if !s.IsSelected(id) {
					s.ToggleLessonSelection(id)
				}
			}
			s.SetMoveTarget(target)
			if target != "" && s.MoveTarget() != target {
				return writeErr(cmd, mutate.NotFoundError{Kind: "module", ID: target})
			}
			runErr := s.RunBulkAction(cmd.Context(), action)
			if runErr != nil {
				_ = writeErr(cmd, runErr)
			}
			if outErr := writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"action":  string(action),
					"lessons": args,
					"modules": s.Modules(),
				},
			}); outErr != nil {
				return outErr
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	if action.NeedsTarget() {
		cmd.Flags().StringVar(&target, "to", "", "Target module id")
	}
	return cmd
}
