package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/opt"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

var (
	benchDim        int
	benchIters      int
	benchPop        int
	benchSeed       int64
	benchWorkers    int
	benchFunctions  []string
	benchOptimizers []string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark optimizers across the continuous test functions",
	Long: `Runs every selected optimizer on every selected test function with the
same budget and prints a table of best scores. Binary GWO runs on the
function's value over 0/1 vectors.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchDim, "dim", 10, "Problem dimension")
	benchCmd.Flags().IntVar(&benchIters, "iters", 200, "Iterations per run")
	benchCmd.Flags().IntVar(&benchPop, "pop", 30, "Population size")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 42, "Random seed")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", runtime.NumCPU(), "Concurrent runs")
	benchCmd.Flags().StringSliceVar(&benchFunctions, "functions", nil, "Test functions (default: all continuous)")
	benchCmd.Flags().StringSliceVar(&benchOptimizers, "optimizers", nil, "Optimizers (default: all GWO variants and mayfly)")
	rootCmd.AddCommand(benchCmd)
}

// benchCell is one optimizer on one function.
type benchCell struct {
	score   float64
	elapsed time.Duration
	err     error
}

func runBench(cmd *cobra.Command, args []string) error {
	settings := opt.Settings{MaxIters: benchIters, PopSize: benchPop, Seed: benchSeed}

	fns, err := selectFunctions(benchFunctions)
	if err != nil {
		return err
	}
	optimizers, err := selectOptimizers(benchOptimizers, settings)
	if err != nil {
		return err
	}

	cells := runBenchGrid(fns, optimizers, benchDim, benchWorkers)
	return writeBenchTable(cmd.OutOrStdout(), fns, optimizers, cells)
}

func selectFunctions(names []string) ([]bench.Func, error) {
	if len(names) == 0 {
		return bench.Continuous(), nil
	}
	fns := make([]bench.Func, 0, len(names))
	for _, name := range names {
		fn, err := bench.Lookup(name)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func selectOptimizers(names []string, s opt.Settings) ([]opt.Optimizer, error) {
	if len(names) == 0 {
		return opt.All(s), nil
	}
	out := make([]opt.Optimizer, 0, len(names))
	for _, name := range names {
		o, err := opt.Lookup(name, s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// runBenchGrid returns cells indexed [function][optimizer].
func runBenchGrid(fns []bench.Func, optimizers []opt.Optimizer, dim, workers int) [][]benchCell {
	cells := make([][]benchCell, len(fns))
	for i := range cells {
		cells[i] = make([]benchCell, len(optimizers))
	}

	p := pool.New().WithMaxGoroutines(max(1, workers))
	for i, fn := range fns {
		for j, o := range optimizers {
			i, j, fn, o := i, j, fn, o
			p.Go(func() {
				lower, upper := fn.Bounds()
				start := time.Now()
				_, score, err := o.Run(fn.Eval, lower, upper, dim)
				cells[i][j] = benchCell{score: score, elapsed: time.Since(start), err: err}
				slog.Debug("Benchmark cell done", "function", fn.Name(), "optimizer", o.Name(), "score", score, "error", err)
			})
		}
	}
	p.Wait()
	return cells
}

func writeBenchTable(out io.Writer, fns []bench.Func, optimizers []opt.Optimizer, cells [][]benchCell) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"FUNCTION", "OPTIMUM"}
	for _, o := range optimizers {
		header = append(header, strings.ToUpper(o.Name()))
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for i, fn := range fns {
		row := []string{fn.Name(), fmt.Sprintf("%g", fn.Optimum())}
		for j := range optimizers {
			c := cells[i][j]
			if c.err != nil {
				row = append(row, "error")
				continue
			}
			row = append(row, fmt.Sprintf("%.4e", c.score))
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
	return w.Flush()
}
