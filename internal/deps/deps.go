package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"redovi/internal/config"
)

// Requirement defines an external dependency redovi relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
	Version     string
	versionArgs []string
}

// Requirements lists the three pipeline tools using the configured paths.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Extracts video, re-encodes and transcodes audio",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "dovi_tool",
			Command:     cfg.Tools.DoviTool,
			Description: "Extracts and injects Dolby Vision RPU metadata",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "MKVToolNix",
			Command:     cfg.Tools.MKVMerge,
			Description: "Remuxes the final Matroska container",
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
			versionArgs: req.VersionArgs,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
