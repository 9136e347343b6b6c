package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newModulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Add modules to a course",
	}

	var courseID, title, description string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Append a module to a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(courseID) == "" {
				return writeErr(cmd, errMissingFlag("--course"))
			}
			if strings.TrimSpace(title) == "" {
				return writeErr(cmd, errMissingFlag("--title"))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			m, err := st.CreateModule(cmd.Context(), courseID, title, desc)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": m})
		},
	}
	addCmd.Flags().StringVar(&courseID, "course", "", "Course id")
	addCmd.Flags().StringVar(&title, "title", "", "Module title")
	addCmd.Flags().StringVar(&description, "description", "", "Module description")

	cmd.AddCommand(addCmd)
	return cmd
}
