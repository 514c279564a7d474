package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/report"
	"github.com/cwbudde/greywolf/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
	showPlot      string
	showTrace     bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored runs",
	Long:  `List, inspect and clean the runs saved by run and serve.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	Long:  `Display all stored runs with variant, objective, best score, iterations, age and size.`,
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on retention policy.
You can keep only the newest N runs or delete runs older than N days.`,
	Args: cobra.NoArgs,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd, showRunCmd, cleanRunsCmd)

	showRunCmd.Flags().StringVar(&showPlot, "plot", "", "Write the convergence curve to this PNG")
	showRunCmd.Flags().BoolVar(&showTrace, "trace", false, "Print the per-iteration trace (fs store only)")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(runStore)

	infos, err := runStore.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	fsStore, _ := runStore.(*store.FSStore)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tVARIANT\tOBJECTIVE\tDIM\tITERS\tBEST SCORE\tAGE\tSIZE")
	fmt.Fprintln(w, "------\t-------\t---------\t---\t-----\t----------\t---\t----")

	for _, info := range infos {
		sizeStr := "-"
		if fsStore != nil {
			if size, err := getDirSize(fsStore.RunDir(info.ID)); err == nil {
				sizeStr = humanize.Bytes(uint64(size))
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.6g\t%s\t%s\n",
			shortID(info.ID),
			info.Variant,
			info.Objective,
			info.Dim,
			info.Iterations,
			info.BestScore,
			humanize.Time(info.Timestamp),
			sizeStr,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(runStore)

	rec, err := runStore.LoadRun(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("run not found: %s", args[0])
	}
	if err != nil {
		return err
	}

	writeRunDetails(cmd.OutOrStdout(), rec)

	if showTrace {
		fsStore, ok := runStore.(*store.FSStore)
		if !ok {
			return fmt.Errorf("traces are only kept by the fs store")
		}
		entries, err := store.ReadTrace(fsStore.BaseDir(), rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no trace recorded for run %s", rec.ID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		if err := writeTrace(cmd.OutOrStdout(), entries); err != nil {
			return err
		}
	}

	if showPlot != "" {
		series := report.Series{Name: variantTitle(gwo.Variant(rec.Config.Variant)), Values: rec.History}
		if err := report.SaveConvergence(showPlot, "Convergence of "+rec.ID, series); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nConvergence plot written to %s\n", showPlot)
	}
	return nil
}

func writeRunDetails(out io.Writer, rec *store.RunRecord) {
	cfg := rec.Config
	fmt.Fprintf(out, "Run: %s\n", rec.ID)
	fmt.Fprintf(out, "Saved: %s (%s)\n", rec.Timestamp.Format("2006-01-02 15:04:05"), humanize.Time(rec.Timestamp))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Variant: %s\n", cfg.Variant)
	fmt.Fprintf(out, "  Objective: %s\n", cfg.Objective)
	fmt.Fprintf(out, "  Dimensions: %d\n", cfg.Dim)
	fmt.Fprintf(out, "  Population: %d\n", cfg.PopSize)
	fmt.Fprintf(out, "  Iterations: %d\n", cfg.Iters)
	fmt.Fprintf(out, "  Seed: %d\n", cfg.Seed)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Result:")
	fmt.Fprintf(out, "  Best Score: %.6g\n", rec.BestScore)
	fmt.Fprintf(out, "  Iterations: %d\n", rec.Iterations)
	if rec.Stopped != "" {
		fmt.Fprintf(out, "  Stopped: %s\n", rec.Stopped)
	}
	fmt.Fprintf(out, "  Elapsed: %s\n", time.Duration(rec.Elapsed*float64(time.Second)).Round(time.Millisecond))
	fmt.Fprintf(out, "  Best Position: %v\n", rec.BestPosition)
}

// writeTrace prints one row per traced iteration with the time since the
// first entry.
func writeTrace(out io.Writer, entries []store.TraceEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATION\tBEST SCORE\tAT")
	var start time.Time
	if len(entries) > 0 {
		start = entries[0].Timestamp
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%.6g\t+%s\n", e.Iteration, e.BestScore, e.Timestamp.Sub(start).Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTrace entries: %d\n", len(entries))
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(runStore)

	infos, err := runStore.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s on %s, %s)\n",
			shortID(info.ID), info.Variant, info.Objective, humanize.Time(info.Timestamp))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(cmd.Context(), info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy. Runs older than
// olderThanDays and everything beyond the newest keepLast are selected,
// each at most once, oldest first.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	sorted := slices.Clone(infos)
	slices.SortStableFunc(sorted, func(a, b store.RunInfo) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.RunInfo
	for i, info := range sorted {
		tooOld := olderThanDays > 0 && info.Timestamp.Before(cutoff)
		if tooOld || i < excess {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
