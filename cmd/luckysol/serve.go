package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"luckysol/internal/api"
	"luckysol/internal/config"
	"luckysol/internal/ledger"
)

func SyncCmd(conf func() *config.Config) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Snapshot program accounts into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for sync")
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			syncer := ledger.NewSyncer(a.rpc, a.repo, cfg.SyncInterval)
			if once {
				stats, err := syncer.SyncOnce(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"rounds":      stats.Rounds,
					"tickets":     stats.Tickets,
					"skipped":     stats.Skipped,
					"duration_ms": stats.Duration.Milliseconds(),
				})
			}

			if err := syncer.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("Syncer stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

func ServeCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API, syncing snapshots when a database is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(cfg.APIPort, a.reader, a.repository())
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start API server: %w", err)
			}

			errChan := make(chan error, 1)
			if a.repo != nil {
				syncer := ledger.NewSyncer(a.rpc, a.repo, cfg.SyncInterval)
				go func() {
					if err := syncer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						errChan <- err
					}
				}()
			} else {
				slog.Warn("DATABASE_URL not set, serving from RPC only")
			}

			// Wait for interrupt or error
			var runErr error
			select {
			case <-ctx.Done():
				slog.Warn("Interrupt received, shutting down...")
			case runErr = <-errChan:
				slog.Error("Syncer error", "error", runErr)
			}
			cancel()

			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("Error stopping API server", "error", err)
			}

			slog.Info("luckysol stopped")
			return runErr
		},
	}
}
