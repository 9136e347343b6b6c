package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/publish"
)

func newPublishCmd(app *App) *cobra.Command {
	var courseID, toDir string
	var overwrite, dryRun bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Export a course as Markdown and mark it published",
		Long: strings.TrimSpace(`
Writes <to>/courses/<course-id>/index.md plus one page per lesson, then sets the
course status to published. Refuses while the course has error-severity
readiness problems (see ` + "`courseforge validate`" + `).
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(courseID) == "" {
				return writeErr(cmd, errMissingFlag("--course"))
			}
			if strings.TrimSpace(toDir) == "" {
				return writeErr(cmd, errMissingFlag("--to"))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			res, err := publish.WriteCourse(cmd.Context(), st, courseID, toDir, publish.WriteOptions{
				Overwrite: overwrite,
				DryRun:    dryRun,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("course published", "courseId", courseID, "files", len(res.Written), "dryRun", dryRun)
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check readiness only; write nothing")
	return cmd
}
