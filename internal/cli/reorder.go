package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/mutate"
)

func newReorderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move a module or lesson into another item's slot",
		Long: strings.TrimSpace(`
Reorder works like a drag-and-drop: the first id is moved into the slot currently
held by the second id and everything in between shifts by one. Unknown ids are
ignored (the structure probably changed elsewhere).
`),
	}

	var courseID string
	modulesCmd := &cobra.Command{
		Use:   "modules <module-id> <over-module-id>",
		Short: "Reorder modules within a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), app, courseID, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			if err := s.OnReorder(cmd.Context(), s.CourseID(), args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"moduleIds": mutate.OrderedModuleIDs(s.Modules())},
			})
		},
	}
	modulesCmd.Flags().StringVar(&courseID, "course", "", "Course id")

	var lessonCourseID, moduleID string
	lessonsCmd := &cobra.Command{
		Use:   "lessons <lesson-id> <over-lesson-id>",
		Short: "Reorder lessons within one module",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(moduleID) == "" {
				return writeErr(cmd, errMissingFlag("--module"))
			}
			s, done, err := openSession(cmd.Context(), app, lessonCourseID, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			if err := s.OnReorder(cmd.Context(), moduleID, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"moduleId": moduleID, "lessonIds": mutate.OrderedLessonIDs(s.Modules(), moduleID)},
			})
		},
	}
	lessonsCmd.Flags().StringVar(&lessonCourseID, "course", "", "Course id")
	lessonsCmd.Flags().StringVar(&moduleID, "module", "", "Module id")

	cmd.AddCommand(modulesCmd, lessonsCmd)
	return cmd
}
