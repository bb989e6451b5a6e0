package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/imagemin/internal/api"
	"github.com/dunamismax/imagemin/internal/desktop"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local UI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if addr != "" {
				a.cfg.API.Addr = addr
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			server, err := api.NewServer(api.Options{
				Logger:         a.log,
				Registry:       a.registry,
				Compressor:     a.processor,
				Runner:         a.runner,
				OutputDirs:     a.outputDirs,
				Desktop:        desktop.New(),
				DefaultChoice:  a.choice,
				DefaultQuality: a.cfg.Batch.DefaultQuality,
			})
			if err != nil {
				return err
			}
			defer server.Close()

			httpServer := &http.Server{
				Addr:              a.cfg.API.Addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", a.cfg.API.Addr).Info("listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			a.log.Info("shutting down")
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.log.WithError(err).Warn("graceful shutdown failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, loopback only (default from config)")
	return cmd
}
