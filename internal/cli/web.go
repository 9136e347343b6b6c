package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"courseforge/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local database over HTTP/JSON (with an SSE change stream)",
		Example: strings.TrimSpace(`
# Serve on the configured address (default 127.0.0.1:8420)
courseforge serve

# Point another machine at it
courseforge --remote http://host:8420 show --course crs-1a2b3c
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			cfg := app.config()
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = cfg.HTTP.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			srv := web.NewServer(st, web.ServerConfig{
				Addr:        listenAddr,
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Logger:      app.log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      srv.Addr(),
					"url":       "http://" + srv.Addr() + "/api",
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "courseforge serving on http://%s (ctrl+c to stop)\n", srv.Addr())

			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port)")
	return cmd
}
