package cli

import (
	"github.com/spf13/cobra"

	"courseforge/internal/config"
)

func newInitCmd(app *App) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local database (and optionally a default config file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			drv, dsn, _ := resolveDB(app)
			cfgPath := ""
			if writeConfig {
				if err := config.Save(app.config()); err != nil {
					return writeErr(cmd, err)
				}
				cfgPath, _ = config.Path()
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"driver": string(drv),
					"db":     dsn,
					"config": cfgPath,
				},
			})
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write the effective config to config.yaml")
	return cmd
}
