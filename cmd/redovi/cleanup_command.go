package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"redovi/internal/config"
	"redovi/internal/staging"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var list bool

	cmd := &cobra.Command{
		Use:   "cleanup <dir>",
		Short: "Remove workspaces left behind by interrupted runs",
		Long: `Find the scratch workspaces under <dir> (the output folder, or a parent of
several output folders) and remove the ones that are older than --max-age.
Workspaces locked by a running redovi process are never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve directory: %w", err)
			}
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := staging.FindWorkspaces(root, cfg.Workspace.DirName)
				if err != nil {
					return fmt.Errorf("list workspaces: %w", err)
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No workspaces found")
					return nil
				}
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					rows = append(rows, []string{
						dir.Path,
						formatAge(time.Since(dir.ModTime)),
						formatBytes(dir.Size),
						yesNo(dir.Locked),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Workspace", "Age", "Size", "In use"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			}

			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.StaleAfter()
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), root, cfg.Workspace.DirName, maxAge, logger)
			for _, path := range result.Skipped {
				fmt.Fprintf(out, "Skipped (in use): %s\n", path)
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "Error: %s: %v\n", e.Path, e.Error)
			}
			fmt.Fprintf(out, "Removed %d stale workspaces\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspaces could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Remove workspaces untouched for longer than this (default from config)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List workspaces instead of removing them")
	return cmd
}
