package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker and its local HTTP bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, domain.SystemClock{})
			if err != nil {
				return err
			}
			if err := a.start(ctx); err != nil {
				_ = a.shutdown(context.Background())
				return err
			}

			// No WriteTimeout: the snapshot stream stays open.
			srv := &http.Server{
				Addr:        ":" + cfg.Server.Port,
				Handler:     a.router,
				ReadTimeout: 10 * time.Second,
				IdleTimeout: 120 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				log.Printf("[HTTP] Kanso tracker running on http://localhost:%s", cfg.Server.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				log.Println("Stop signal received. Shutting down...")
			case err := <-serverErr:
				if err != nil {
					log.Printf("[HTTP] Critical server error: %v", err)
				}
				stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("[HTTP] Forced shutdown: %v", err)
			}
			if err := a.shutdown(shutdownCtx); err != nil {
				return err
			}

			log.Println("Tracker stopped gracefully.")
			return nil
		},
	}
}
