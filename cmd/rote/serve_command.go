package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/session"
	"github.com/rote-srs/rote/internal/storage"
	rotesync "github.com/rote-srs/rote/internal/sync"
	"github.com/rote-srs/rote/internal/web"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web review interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				// The web session has no card limit. Holding the lock for
				// the server's lifetime keeps terminal and web reviews
				// from interleaving.
				sess, err := session.Start(db, cfg.LockPath, 0)
				if err != nil {
					if errors.Is(err, session.ErrActiveSession) {
						return fmt.Errorf("a study session is already running")
					}
					return err
				}
				defer sess.Close()

				srv, err := web.NewServer(db, sess, cfg.ReposDir)
				if err != nil {
					return err
				}

				scheduler := gocron.NewScheduler(time.UTC)
				if _, err := scheduler.Every(cfg.SyncEvery).Do(func() {
					if _, err := rotesync.Run(db, cfg.ReposDir, time.Now()); err != nil {
						slog.Error("scheduled sync failed", "error", err)
					}
				}); err != nil {
					return fmt.Errorf("failed to schedule sync: %w", err)
				}
				scheduler.StartAsync()
				defer scheduler.Stop()

				httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv}

				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				serveErr := make(chan error, 1)
				go func() {
					serveErr <- httpServer.ListenAndServe()
				}()

				slog.Info("web interface listening", "addr", cfg.ListenAddr, "sync_every", cfg.SyncEvery)

				select {
				case err := <-serveErr:
					return err
				case <-signalCtx.Done():
				}

				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelShutdown()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("failed to stop cleanly: %w", err)
				}
				slog.Info("web interface stopped")
				return nil
			})
		},
	}
}
