package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"redovi/internal/history"
)

const shortIDLen = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var pruneAge time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long: `List recent runs from the history store, newest first.

Use --run with a run ID (or its first characters) to list that run's files,
and --prune to delete runs older than the given age.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Run history is disabled ([history] enabled = false)")
				return nil
			}
			store, err := history.OpenConfig(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case pruneAge > 0:
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-pruneAge))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d runs older than %s\n", removed, pruneAge)
				return nil
			case strings.TrimSpace(runID) != "":
				return printRunFiles(cmd, store, strings.TrimSpace(runID))
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, runRow(run))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Mode", "Source", "Outcome", "Succeeded", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the files of one run")
	cmd.Flags().DurationVar(&pruneAge, "prune", 0, "Delete runs older than this age (e.g. 720h)")
	return cmd
}

func runRow(run history.Run) []string {
	outcome := run.Outcome
	duration := "-"
	if !run.Finished() {
		outcome = "incomplete"
	} else {
		duration = formatElapsed(run.FinishedAt.Sub(run.StartedAt))
	}
	id := run.ID
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return []string{
		id,
		run.StartedAt.Local().Format("2006-01-02 15:04"),
		string(run.Mode),
		filepath.Base(run.Source),
		outcome,
		strconv.Itoa(run.Succeeded) + "/" + strconv.Itoa(run.Total),
		duration,
	}
}

func printRunFiles(cmd *cobra.Command, store *history.Store, id string) error {
	run, err := resolveRun(cmd, store, id)
	if err != nil {
		return err
	}
	files, err := store.Files(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s) started %s\n", run.ID, run.Mode, run.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "Source: %s\n\n", run.Source)
	if len(files) == 0 {
		fmt.Fprintln(out, "No files recorded")
		return nil
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		detail := f.Output
		if f.ErrorMessage != "" {
			detail = f.ErrorMessage
		}
		rows = append(rows, []string{filepath.Base(f.Source), f.State, formatElapsed(f.Elapsed), detail})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "State", "Elapsed", "Output / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

// resolveRun accepts a full run ID or a unique prefix of a recent one.
func resolveRun(cmd *cobra.Command, store *history.Store, id string) (*history.Run, error) {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := store.RecentRuns(cmd.Context(), 500)
	if err != nil {
		return nil, err
	}
	var match *history.Run
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", id)
		}
		match = &runs[i]
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}
