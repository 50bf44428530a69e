package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"venue-booking-backend/internal/api"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the replan sweeper and the notification workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.webpush.VAPIDPublicKey == "" || a.webpush.VAPIDPrivateKey == "" {
				a.log.Warn("VAPID keys are not configured; staff push alerts are disabled")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a.start(ctx)
			go a.sweeper.Run(ctx)

			handler := api.NewHandler(a.bookings, a.planner, a.store, a.store, a.webpush, a.log.Named("api"))
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:           api.NewRouter(handler, a.cfg.Server),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				a.log.Infow("HTTP server starting", "port", a.cfg.Server.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)

			select {
			case <-stop:
				a.log.Info("shutdown signal received, stopping services")
			case err := <-serveErr:
				return errors.Wrap(err, "HTTP server ListenAndServe")
			}
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "HTTP server Shutdown")
			}
			a.log.Info("server gracefully stopped")
			return nil
		},
	}
}
