package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbudde/greywolf/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the server's job and status payloads.
type jobStatus struct {
	ID                  string           `json:"id"`
	State               string           `json:"state"`
	Config              config.RunConfig `json:"config"`
	BestScore           float64          `json:"bestScore"`
	BestPosition        []float64        `json:"bestPosition"`
	Iterations          int              `json:"iterations"`
	Stopped             string           `json:"stopped"`
	Elapsed             float64          `json:"elapsed"`
	IterationsPerSecond float64          `json:"iterationsPerSecond"`
	StartTime           time.Time        `json:"startTime"`
	Error               string           `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func getJSON(url string, v any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobStatus
	if _, err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s (started %s)\n", job.State, humanize.Time(job.StartTime))
		fmt.Fprintf(out, "  Variant: %s on %s, dim %d\n", job.Config.Variant, job.Config.Objective, job.Config.Dim)
		if job.Iterations > 0 {
			fmt.Fprintf(out, "  Best: %.6g after %d/%d iterations\n", job.BestScore, job.Iterations, job.Config.Iters)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobStatus
	code, err := getJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	cfg := status.Config
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Variant: %s\n", cfg.Variant)
	fmt.Fprintf(out, "  Objective: %s\n", cfg.Objective)
	fmt.Fprintf(out, "  Dimensions: %d\n", cfg.Dim)
	fmt.Fprintf(out, "  Population: %d\n", cfg.PopSize)
	fmt.Fprintf(out, "  Iterations: %d\n", cfg.Iters)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iterations: %d/%d\n", status.Iterations, cfg.Iters)
	if status.Iterations > 0 {
		fmt.Fprintf(out, "  Best Score: %.6g\n", status.BestScore)
	}
	if status.Stopped != "" {
		fmt.Fprintf(out, "  Stopped: %s\n", status.Stopped)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.IterationsPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %s iterations/sec\n", humanize.Commaf(float64(int64(status.IterationsPerSecond))))
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
	return nil
}
