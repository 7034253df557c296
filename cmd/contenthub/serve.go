package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/contenthub/api"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(cmd, func(_ context.Context, a *app) error {
			if err := a.bootstrap(ctx); err != nil {
				return fmt.Errorf("initializing platform: %w", err)
			}

			opts := []api.Option{
				api.WithLogger(a.logger),
				api.WithBasePath(a.cfg.BasePath),
				api.WithAttestor(attestor(a)),
			}
			if a.metrics != nil {
				opts = append(opts, api.WithRoute(a.cfg.Metrics.Path, a.metrics.Handler()))
			}
			handler := api.New(a.ledger, opts...)

			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("contenthub listening",
					"addr", a.cfg.Listen,
					"base_path", handler.BasePath(),
					"store", a.cfg.Store.Type,
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("contenthub shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	},
}

func attestor(a *app) caller.Attestor {
	if a.cfg.Auth.Mode == "insecure" {
		a.logger.Warn("wallet signatures are not verified", "auth_mode", a.cfg.Auth.Mode)
		return caller.Insecure{}
	}
	return caller.NewEthAttestor(caller.WithNonceWindow(a.cfg.Auth.NonceWindow.Duration))
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write a default configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(args[0], config.Default()); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", args[0])
		return nil
	},
}
