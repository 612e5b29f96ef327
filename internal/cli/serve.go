package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/api"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/store"
)

const shutdownTimeout = 15 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor HTTP API",
		Long: `Run the editor HTTP API.

Sessions are opened per tenant on first use and saved on shutdown. With
auto_save enabled in the config, changes are also saved after a quiet period.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			return c.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (c *CLI) serve(ctx context.Context, addr string) error {
	gw, err := spin(ctx, "Connecting to "+c.cfg.Store.Backend+" store", func() (store.Gateway, error) {
		return c.newGateway(ctx)
	})
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()
	defer installLogHooks(c.Logger)()
	mgr := editor.NewManager(gw, c.editorOptions())

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.New(mgr, api.Options{Logger: c.Logger}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	printSuccess("Listening on %s", StyleHighlight.Render("http://"+addr))
	printDetail("store: %s · auto save: %v", c.cfg.Store.Backend, c.cfg.Editor.AutoSave)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		c.Logger.Warn("http shutdown", "err", err)
	}
	open := len(mgr.Tenants())
	if err := mgr.CloseAll(sctx); err != nil {
		return err
	}
	printSuccess("Closed %d tenant sessions", open)
	return nil
}
