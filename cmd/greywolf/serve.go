package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/greywolf/internal/server"
	"github.com/cwbudde/greywolf/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveTrace bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Serves the job API: POST /api/v1/jobs starts a run, /stream follows it
over server-sent events, /convergence.png plots it, DELETE cancels it.
Completed runs are stored and listed under /api/v1/runs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveTrace, "trace", true, "Write a JSONL trace per job (fs store only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(runStore)

	traceDir := ""
	if _, ok := runStore.(*store.FSStore); ok && serveTrace {
		traceDir = dataDir
	}

	srv := server.NewServer(serveAddr, runStore, traceDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
