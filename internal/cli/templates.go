package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/model"
	"courseforge/internal/templates"
)

func newTemplatesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Lesson templates and saved course structures",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List lesson templates (config or built-in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpls, err := templates.Normalize(app.config().Templates)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": tpls})
		},
	}

	var applyCourse, applyTemplate, applyModule, applyAfter string
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Create a lesson from a template",
		Long: strings.TrimSpace(`
The lesson is created in --module when given, else in the module of --after
(a lesson id), else in the first module of the course.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(applyTemplate) == "" {
				return writeErr(cmd, errMissingFlag("--template"))
			}
			s, done, err := openSession(cmd.Context(), app, applyCourse, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			if applyAfter != "" {
				s.SelectLesson(applyAfter)
			}
			res, err := s.ApplyTemplate(cmd.Context(), applyTemplate, applyModule)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	applyCmd.Flags().StringVar(&applyCourse, "course", "", "Course id")
	applyCmd.Flags().StringVar(&applyTemplate, "template", "", "Template id (see `courseforge templates list`)")
	applyCmd.Flags().StringVar(&applyModule, "module", "", "Target module id")
	applyCmd.Flags().StringVar(&applyAfter, "after", "", "Use this lesson's module as the target")

	var saveCourse, saveName, saveDescription string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save the course's module/lesson skeleton as a reusable template",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(cmd.Context(), app, saveCourse, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &saveDescription
			}
			id, err := s.SaveAsTemplate(cmd.Context(), saveName, desc)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "name": strings.TrimSpace(saveName)}})
		},
	}
	saveCmd.Flags().StringVar(&saveCourse, "course", "", "Course id")
	saveCmd.Flags().StringVar(&saveName, "name", "", "Template name")
	saveCmd.Flags().StringVar(&saveDescription, "description", "", "Template description")

	var savedCourse string
	savedCmd := &cobra.Command{
		Use:   "saved",
		Short: "List saved structure templates of a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(savedCourse) == "" {
				return writeErr(cmd, errMissingFlag("--course"))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			list, err := st.ListStructureTemplates(cmd.Context(), savedCourse)
			if err != nil {
				return writeErr(cmd, err)
			}
			if list == nil {
				list = []model.StructureTemplate{}
			}
			return writeOut(cmd, app, map[string]any{"data": list})
		},
	}
	savedCmd.Flags().StringVar(&savedCourse, "course", "", "Course id")

	cmd.AddCommand(listCmd, applyCmd, saveCmd, savedCmd)
	return cmd
}
