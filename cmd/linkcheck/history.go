package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/report"
)

// historyTimeLayout is the date format of the run list.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command reads the runs stored with --save from the result database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show checks stored in the result database",
		Long: `History lists the runs stored with 'linkcheck check --save'.

With a run ID it prints the results of that run in any output format.
With --compare it shows links that broke or were fixed between two runs.

Examples:
  # List stored runs, newest first
  linkcheck history

  # Show the broken links of a run
  linkcheck history 5f1c2b8e-1d0a-4c7e-9d8e-4e1f5a6b7c8d

  # Show every result of a run as Markdown
  linkcheck history -v -o markdown 5f1c2b8e-1d0a-4c7e-9d8e-4e1f5a6b7c8d

  # Compare a run with a previous one
  linkcheck history --compare <previous-run-id> <run-id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputFormat,
		"Output format of run results (sql is not allowed)")
	cmd.Flags().String("compare", "",
		"Compare the run with this previous run ID")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run list or comparison as JSON")
	cmd.Flags().String("db-dir", "",
		"Result database directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	format, err := flags.GetString("output")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format == sqlFormat {
		return errors.New("history cannot write to the database (choose another --output)")
	}
	previousID, err := flags.GetString("compare")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	if previousID != "" && len(args) == 0 {
		return errors.New("--compare needs the run ID to compare with")
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case len(args) == 0:
		return listRuns(ctx, out, db, jsonOutput)
	case previousID != "":
		return compareRuns(ctx, out, db, previousID, args[0], jsonOutput)
	default:
		opts := report.Options{Verbose: getVerboseFlag(cmd), Version: getVersion()}
		return replayRun(ctx, out, db, args[0], format, opts)
	}
}

// listRuns prints all stored runs, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.ResultDB, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		type runJSON struct {
			Info     model.RunInfo `json:"info"`
			Summary  model.Summary `json:"summary"`
			Finished bool          `json:"finished"`
		}
		list := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			list = append(list, runJSON{Info: r.Info, Summary: r.Summary, Finished: r.Finished})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs found (use 'linkcheck check --save' to store one)")
		return nil
	}

	fmt.Fprintf(w, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-36s  %-19s  %-8s  %-8s  %s\n", "ID", "Date", "Checked", "Broken", "Seeds")
	for _, r := range runs {
		checked, broken := "-", "-"
		if r.Finished {
			checked = fmt.Sprint(r.Summary.Total)
			broken = fmt.Sprint(r.Summary.Invalid)
			if r.Summary.Aborted {
				checked += "*"
			}
		}
		fmt.Fprintf(w, "  %-36s  %-19s  %-8s  %-8s  %s\n",
			r.Info.ID,
			r.Info.StartedAt.Local().Format(historyTimeLayout),
			checked,
			broken,
			strings.Join(r.Info.Seeds, " "),
		)
	}
	fmt.Fprintln(w, "\n  - not finished, * aborted")
	return nil
}

// replayRun writes a stored run through a result logger as if it was
// checked right now. Runs that never finished get a summary computed from
// their results and are marked aborted.
func replayRun(ctx context.Context, w io.Writer, db *database.ResultDB, runID, format string, opts report.Options) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	results, err := db.ListResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load results of run %s: %w", runID, err)
	}

	logger, err := report.NewRegistry().New(format, w, opts)
	if err != nil {
		return err
	}

	summary := run.Summary
	if !run.Finished {
		summary = model.Summary{RunID: run.Info.ID, StartedAt: run.Info.StartedAt, Aborted: true}
		for _, r := range results {
			summary.Add(r)
		}
	}

	if err := logger.Start(run.Info); err != nil {
		return err
	}
	for _, r := range results {
		if err := logger.Log(r); err != nil {
			return err
		}
	}
	return logger.End(summary)
}

// RunComparison is the difference of the broken links of two runs.
type RunComparison struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`

	// NewlyBroken are broken in the current run but were not broken
	// (or not checked) in the previous run.
	NewlyBroken []string `json:"newly_broken"`

	// Fixed were broken in the previous run and are valid now.
	Fixed []string `json:"fixed"`

	// StillBroken are broken in both runs.
	StillBroken []string `json:"still_broken"`
}

// compareRuns prints the links that changed between two runs.
func compareRuns(ctx context.Context, w io.Writer, db *database.ResultDB, previousID, currentID string, jsonOutput bool) error {
	previous, err := loadStatuses(ctx, db, previousID)
	if err != nil {
		return err
	}
	current, err := loadStatuses(ctx, db, currentID)
	if err != nil {
		return err
	}

	result := compareStatuses(previous, current)
	result.Previous = previousID
	result.Current = currentID

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Run comparison: %s -> %s\n", previousID, currentID)
	printURLs(w, "Newly broken", "+", result.NewlyBroken)
	printURLs(w, "Fixed", "-", result.Fixed)
	printURLs(w, "Still broken", " ", result.StillBroken)
	return nil
}

// loadStatuses returns the status of every URL checked in a run.
func loadStatuses(ctx context.Context, db *database.ResultDB, runID string) (map[string]model.Status, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	results, err := db.ListResults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results of run %s: %w", runID, err)
	}
	statuses := make(map[string]model.Status, len(results))
	for _, r := range results {
		statuses[r.URL] = r.Status
	}
	return statuses, nil
}

// compareStatuses classifies the broken links of two runs. The URL lists
// are sorted.
func compareStatuses(previous, current map[string]model.Status) RunComparison {
	var c RunComparison
	for u, status := range current {
		if status != model.StatusInvalid {
			continue
		}
		if previous[u] == model.StatusInvalid {
			c.StillBroken = append(c.StillBroken, u)
		} else {
			c.NewlyBroken = append(c.NewlyBroken, u)
		}
	}
	for u, status := range previous {
		if status != model.StatusInvalid {
			continue
		}
		if now, ok := current[u]; ok && now == model.StatusValid {
			c.Fixed = append(c.Fixed, u)
		}
	}
	slices.Sort(c.NewlyBroken)
	slices.Sort(c.Fixed)
	slices.Sort(c.StillBroken)
	return c
}

func printURLs(w io.Writer, title, marker string, urls []string) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(w, "  [%s] %s\n", marker, u)
	}
}
