package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/services"
)

// mkvmerge exits 1 when it finished with warnings; the output is complete.
const mkvmergeWarningExit = 1

// RemuxInput describes the final mux. Audio equal to Original means no audio
// conversion happened.
type RemuxInput struct {
	Video     string
	Audio     string
	Original  string
	Output    string
	Retention job.Retention
}

// Remux assembles the final container. mkvmerge writes to a hidden temporary
// file next to Output which is renamed into place once complete.
func (c *Client) Remux(ctx context.Context, in RemuxInput) error {
	dir := filepath.Dir(in.Output)
	tmpPath := filepath.Join(dir, ".mux-"+filepath.Base(in.Output)+".tmp")

	err := c.run(ctx, OpRemux, c.bins.MKVMerge, BuildRemuxArgs(in, tmpPath), nil)
	var toolErr *services.ToolError
	if errors.As(err, &toolErr) && toolErr.ExitCode == mkvmergeWarningExit {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "mkvmerge finished with warnings", "mux_warnings",
			logging.String("output", in.Output),
			logging.String("detail", toolErr.LastLine()),
			logging.String(logging.FieldImpact, "output written; review the warning"),
		)
		err = nil
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return services.Wrap(services.ErrExternalTool, OpRemux, "mkvmerge", "no output file produced", err)
	}
	if err := os.Rename(tmpPath, in.Output); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrIO, OpRemux, "rename", fmt.Sprintf("move output to %s", in.Output), err)
	}
	return nil
}

// BuildRemuxArgs returns the mkvmerge arguments for one of four shapes:
//
//	audio from original, keep:   VIDEO --no-video ORIGINAL
//	audio from original, remove: --no-audio VIDEO
//	converted audio, keep:       VIDEO AUDIO --no-video ORIGINAL
//	converted audio, remove:     VIDEO AUDIO
//
// mkvmerge options apply to the next input file, so tag stripping is
// repeated in front of every input.
func BuildRemuxArgs(in RemuxInput, output string) []string {
	strip := []string{"--no-track-tags", "--no-global-tags"}
	args := []string{"-o", output}

	converted := in.Audio != "" && in.Audio != in.Original
	keep := in.Retention != job.RetainRemove

	if !converted && !keep {
		args = append(args, "--no-audio")
	}
	args = append(args, strip...)
	args = append(args, in.Video)

	if converted {
		args = append(args, strip...)
		args = append(args, in.Audio)
	}
	if keep {
		args = append(args, "--no-video")
		args = append(args, strip...)
		args = append(args, in.Original)
	}
	return args
}
