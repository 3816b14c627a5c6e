package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"redovi/internal/config"
	"redovi/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Target is what a run is about to read and write.
type Target struct {
	// Source is a file for single-file runs and empty for batches.
	Source    string
	OutputDir string
}

// RunAll executes the filesystem checks for one run. The free-space check is
// skipped when workspace.min_free_gib is zero.
func RunAll(ctx context.Context, cfg *config.Config, target Target) []Result {
	var results []Result
	if strings.TrimSpace(target.Source) != "" {
		results = append(results, CheckSourceReadable("Source file", target.Source))
	}
	results = append(results, CheckDirectoryAccess("Output directory", target.OutputDir))
	if cfg != nil && cfg.Workspace.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace(ctx, "Free space", target.OutputDir, float64(cfg.Workspace.MinFreeGiB)))
	}
	return results
}

// Err joins the failed checks into one error marked services.ErrIO, or
// returns nil when every check passed.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrIO, "preflight", "", "checks failed", errors.Join(errs...))
}
