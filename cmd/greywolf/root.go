package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cwbudde/greywolf/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	storeKind string
	dataDir   string
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "greywolf",
	Short: "Grey Wolf Optimizer variants for continuous and binary problems",
	Long: `greywolf minimises objective functions with the Grey Wolf Optimizer
family: the continuous original, a binary variant, a chaotic variant and a
GWO-PSO hybrid. Runs can be compared, benchmarked, stored and served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(os.Stderr, logLevel, logFormat)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "Log format (auto, text, json); auto picks text on a terminal")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "fs", "Run store backend (fs, sqlite)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for stored runs")
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" || (format == "auto" && isTerminal(w)) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openStore opens the configured backend. The sqlite database lives inside
// the data directory.
func openStore(ctx context.Context) (store.Store, error) {
	path := dataDir
	if storeKind == "sqlite" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		path = filepath.Join(dataDir, "runs.db")
	}
	return store.NewStore(ctx, storeKind, path)
}
