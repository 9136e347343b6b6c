package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/model"
	"courseforge/internal/statusutil"
)

func newCoursesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List and create courses",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			courses, err := st.ListCourses(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if courses == nil {
				courses = []model.Course{}
			}
			return writeOut(cmd, app, map[string]any{"data": courses})
		},
	}

	var title string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft course",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return writeErr(cmd, errMissingFlag("--title"))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			c, err := st.CreateCourse(cmd.Context(), title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   c,
				"_hints": []string{"courseforge modules add --course " + c.ID + " --title <title>"},
			})
		},
	}
	createCmd.Flags().StringVar(&title, "title", "", "Course title")

	statusCmd := &cobra.Command{
		Use:   "status <course-id> <draft|published|archived>",
		Short: "Set a course's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := statusutil.NormalizeCourseStatus(args[1]); err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			c, err := st.SetCourseStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": c})
		},
	}

	cmd.AddCommand(listCmd, createCmd, statusCmd)
	return cmd
}
