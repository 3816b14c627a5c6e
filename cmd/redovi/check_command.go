package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"redovi/internal/config"
	"redovi/internal/deps"
	"redovi/internal/preflight"
	"redovi/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [output-dir]",
		Short: "Verify external tools and the output directory",
		Long: `Check that ffmpeg, dovi_tool and mkvmerge can be found and report their
versions, then run the filesystem preflight against the output directory
(the current directory when none is given).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			target, err = config.ExpandPath(target)
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}
			if abs, err := filepath.Abs(target); err == nil {
				target = abs
			}

			if ctx.configPath != "" {
				if _, statErr := os.Stat(ctx.configPath); statErr == nil {
					fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)
				} else {
					fmt.Fprintf(out, "Config: defaults (%s not found)\n\n", ctx.configPath)
				}
			}

			statuses := deps.ProbeVersions(cmd.Context(), deps.CheckBinaries(deps.Requirements(cfg)))
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Version
				if !s.Available {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "Found", "Version"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Target{OutputDir: target})
			rows = rows[:0]
			for _, r := range results {
				rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Passed", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return missingToolsError(missing)
			}
			return preflight.Err(results)
		},
	}
}

func missingToolsError(missing []deps.Status) error {
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "check", "dependencies",
		"missing required tools: "+strings.Join(names, ", "), nil)
}
