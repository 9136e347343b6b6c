package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/format"
	"courseforge/internal/model"
	"courseforge/internal/publish"
)

func newShowCmd(app *App) *cobra.Command {
	var courseID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a course's modules and lessons",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(courseID) == "" {
				return writeErr(cmd, errMissingFlag("--course"))
			}
			gw, done, err := openGateway(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			st, err := gw.FetchStructure(cmd.Context(), courseID)
			if err != nil {
				return writeErr(cmd, err)
			}
			warnings := publish.ValidatePublishReadiness(st.Modules)
			if warnings == nil {
				warnings = []model.Warning{}
			}
			out := format.Outline{Course: st.Course, Modules: st.Modules, Warnings: warnings}
			if strings.EqualFold(app.Format, "text") {
				return writeOut(cmd, app, out)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	return cmd
}

func newValidateCmd(app *App) *cobra.Command {
	var courseID string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "List publish-readiness problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(courseID) == "" {
				return writeErr(cmd, errMissingFlag("--course"))
			}
			gw, done, err := openGateway(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()
			st, err := gw.FetchStructure(cmd.Context(), courseID)
			if err != nil {
				return writeErr(cmd, err)
			}
			warnings := publish.ValidatePublishReadiness(st.Modules)
			if warnings == nil {
				warnings = []model.Warning{}
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"ready":    !publish.HasBlocking(warnings),
					"warnings": warnings,
				},
			})
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	return cmd
}
