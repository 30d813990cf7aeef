package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	argohttp "github.com/longregen/argo/internal/adapters/http"
	"github.com/longregen/argo/internal/adapters/tracing"
)

// webCacheSweepInterval bounds how stale an expired web_cache chunk can
// linger while the server runs.
const webCacheSweepInterval = 6 * time.Hour

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Setup(ctx)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a := buildApp(pool)
			server := argohttp.NewServer(cfg, a.orch, a.store, pool)

			go sweepWebCache(ctx, a)

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			log.Println("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := server.Stop(shutdownCtx); err != nil {
				log.Printf("shutdown error: %v", err)
			}

			// Background fact extraction may still be running; let it
			// finish so facts from the last turns are not lost.
			a.orch.Wait()

			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Printf("trace flush error: %v", err)
			}
			return nil
		},
	}
}

func sweepWebCache(ctx context.Context, a *app) {
	sweep := func() {
		n, err := a.ingestor.SweepWebCache(ctx)
		if err != nil {
			log.Printf("web cache sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("swept %d expired web cache entries", n)
		}
	}

	sweep()
	ticker := time.NewTicker(webCacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
