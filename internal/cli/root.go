package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"courseforge/internal/config"
	"courseforge/internal/format"
	"courseforge/internal/gateway"
	"courseforge/internal/logger"
	"courseforge/internal/mutate"
	"courseforge/internal/remote"
	"courseforge/internal/session"
	"courseforge/internal/statusutil"
	"courseforge/internal/store"
	"courseforge/internal/templates"
)

type App struct {
	DBPath     string
	Driver     string
	Remote     string
	Format     string
	PrettyJSON bool

	cfg *config.Config
	log *logger.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "courseforge",
		Short:        "Course structure editor (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a local database and a course
  courseforge init
  courseforge courses create --title "Intro to Go"

  # Inspect a course as an outline
  courseforge show --course crs-1a2b3c --format text

  # Edit interactively
  courseforge edit --course crs-1a2b3c
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		if app.Driver == "" {
			app.Driver = cfg.DB.Driver
		}
		if app.DBPath == "" {
			app.DBPath = cfg.DB.DSN
		}
		if app.Remote == "" {
			app.Remote = cfg.Remote.URL
		}
		// The editor owns the terminal and sets up its own file logger.
		if cmd.Name() == "edit" {
			return nil
		}
		mode := cfg.Log.Mode
		if mode == "" {
			mode = "quiet"
		}
		l, err := logger.NewWithOutput(mode, cfg.Log.File)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.log = l
		return nil
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app.log.Sync()
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("COURSEFORGE_DB", ""), "Database path (sqlite) or URL (postgres)")
	cmd.PersistentFlags().StringVar(&app.Driver, "driver", "", "Database driver (sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&app.Remote, "remote", "", "Use a courseforge server at this URL instead of a local database")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("COURSEFORGE_FORMAT", "json"), "Output format (json|edn|text)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newCoursesCmd(app))
	cmd.AddCommand(newModulesCmd(app))
	cmd.AddCommand(newLessonsCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newValidateCmd(app))
	cmd.AddCommand(newReorderCmd(app))
	cmd.AddCommand(newBulkCmd(app))
	cmd.AddCommand(newTemplatesCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newEditCmd(app))

	return cmd
}

// openStore opens the local database. Commands that need store-only operations
// (course creation, publishing, serving) use it directly.
func openStore(ctx context.Context, app *App) (*store.Store, error) {
	if strings.TrimSpace(app.Remote) != "" {
		return nil, errLocalOnly
	}
	drv, dsn, err := resolveDB(app)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, drv, dsn)
}

// resolveDB fills in the default sqlite path under the config dir.
func resolveDB(app *App) (store.Driver, string, error) {
	drv, err := store.ParseDriver(app.Driver)
	if err != nil {
		return "", "", err
	}
	dsn := strings.TrimSpace(app.DBPath)
	if dsn == "" && drv == store.DriverSQLite {
		dir, err := config.Dir()
		if err != nil {
			return "", "", err
		}
		dsn = store.DefaultDBPath(dir)
	}
	return drv, dsn, nil
}

// openGateway returns the remote client when --remote is set, else the local store.
func openGateway(ctx context.Context, app *App) (gateway.Gateway, func(), error) {
	if u := strings.TrimSpace(app.Remote); u != "" {
		c, err := remote.New(u, remote.Options{Timeout: app.config().Remote.Timeout, Logger: app.log})
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	st, err := openStore(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// openSession opens an editing session over the configured gateway. The returned
// close func saves pending edits before releasing everything.
func openSession(ctx context.Context, app *App, courseID string, log *logger.Logger) (*session.Session, func(), error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, nil, errMissingFlag("--course")
	}
	gw, closeGW, err := openGateway(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	cfg := app.config()
	tpls, err := templates.Normalize(cfg.Templates)
	if err != nil {
		closeGW()
		return nil, nil, fmt.Errorf("config templates: %w", err)
	}
	s, err := session.Open(ctx, gw, courseID, session.Options{
		Logger:       log,
		Debounce:     cfg.Autosave.Debounce,
		HistoryLimit: cfg.History.Limit,
		Templates:    tpls,
	})
	if err != nil {
		closeGW()
		return nil, nil, err
	}
	if st := s.Course().Status; !statusutil.IsEditable(st) {
		s.Close()
		closeGW()
		return nil, nil, mutate.ValidationError{Field: "course", Reason: "status " + string(st) + " is read-only; set it back to draft first"}
	}
	return s, func() {
		_ = s.SaveNow(context.Background())
		s.Close()
		closeGW()
	}, nil
}

func (app *App) config() *config.Config {
	if app.cfg == nil {
		app.cfg = config.Default()
	}
	return app.cfg
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
