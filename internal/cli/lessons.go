package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/model"
	"courseforge/internal/mutate"
	"courseforge/internal/statusutil"
)

func newLessonsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "Add and edit lessons",
	}
	cmd.AddCommand(newLessonsAddCmd(app), newLessonsEditCmd(app))
	return cmd
}

func newLessonsAddCmd(app *App) *cobra.Command {
	var moduleID, title, contentType string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a blank lesson to a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(moduleID) == "" {
				return writeErr(cmd, errMissingFlag("--module"))
			}
			ct, err := statusutil.NormalizeContentType(contentType)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			l, err := st.CreateLesson(cmd.Context(), moduleID, title, ct)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}
	cmd.Flags().StringVar(&moduleID, "module", "", "Module id")
	cmd.Flags().StringVar(&title, "title", "", "Lesson title")
	cmd.Flags().StringVar(&contentType, "type", string(model.ContentVideo), "Content type (video|text|quiz|assignment)")
	return cmd
}

// lessons edit goes through an editing session so the same validation and save
// path as the editor applies.
func newLessonsEditCmd(app *App) *cobra.Command {
	var courseID, title, contentType, content string
	var preview bool
	cmd := &cobra.Command{
		Use:   "edit <lesson-id>",
		Short: "Update a lesson's title, type, preview flag or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.LessonPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("type") {
				ct, err := statusutil.NormalizeContentType(contentType)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.ContentType = &ct
			}
			if cmd.Flags().Changed("preview") {
				patch.IsPreview = &preview
			}
			if cmd.Flags().Changed("content") {
				patch.ContentText = &content
			}

			s, done, err := openSession(cmd.Context(), app, courseID, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if err := s.UpdateLesson(args[0], patch); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.SaveNow(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.Err(); err != nil {
				return writeErr(cmd, err)
			}
			l, _ := mutate.FindLesson(s.Modules(), args[0])
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&contentType, "type", "", "New content type")
	cmd.Flags().BoolVar(&preview, "preview", false, "Free preview flag")
	cmd.Flags().StringVar(&content, "content", "", "Lesson content (markdown)")
	return cmd
}
