package tools

import (
	"context"
	"errors"
	"strconv"
	"time"

	"redovi/internal/job"
	"redovi/internal/logging"
	"redovi/internal/services"
)

// ExtractVideo copies the video stream of input into a raw HEVC elementary
// stream, dropping audio, subtitle and data tracks. The backend selects the
// matching hardware decode hints.
func (c *Client) ExtractVideo(ctx context.Context, input, output string, backend job.Backend) error {
	return c.run(ctx, OpExtractVideo, c.bins.FFmpeg, extractVideoArgs(input, output, backend), nil)
}

func extractVideoArgs(input, output string, backend job.Backend) []string {
	args := []string{"-hide_banner", "-nostdin"}
	switch backend {
	case job.BackendCUDA:
		args = append(args, "-hwaccel", "cuda", "-hwaccel_output_format", "cuda", "-c:v", "hevc_cuvid")
	case job.BackendQSV:
		args = append(args, "-hwaccel", "qsv", "-c:v", "hevc_qsv")
	}
	return append(args, "-i", input, "-c:v", "copy", "-an", "-sn", "-dn", "-y", output)
}

// ProbeDuration reads the container duration from ffmpeg's input summary.
// It returns 0 when the duration cannot be determined; only cancellation is
// reported as an error.
func (c *Client) ProbeDuration(ctx context.Context, input string) (time.Duration, error) {
	var duration time.Duration
	err := c.run(ctx, OpProbe, c.bins.FFmpeg, []string{"-hide_banner", "-nostdin", "-i", input}, func(line string) {
		if duration > 0 {
			return
		}
		if d, ok := parseDurationLine(line); ok {
			duration = d
		}
	})
	// ffmpeg exits non-zero when no output is given; that is expected here.
	if err != nil && errors.Is(err, services.ErrAborted) {
		return 0, err
	}
	return duration, nil
}

// ReencodeOptions describes one video re-encode.
type ReencodeOptions struct {
	Input   string
	Output  string
	Quality int
	Backend job.Backend
	Preset  string
}

// Reencode transcodes the video track of the original container, copying
// audio untouched. onProgress receives the encode position as a percentage
// of the probed duration, clamped to [0,100] and never decreasing. When the
// duration is unknown the only report is 100 on completion. Progress stops as
// soon as ctx is cancelled; the process is then terminated and the error is
// marked ErrAborted.
func (c *Client) Reencode(ctx context.Context, opts ReencodeOptions, onProgress func(float64)) error {
	total, err := c.ProbeDuration(ctx, opts.Input)
	if err != nil {
		return err
	}
	if total <= 0 {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger),
			"source duration unknown", "duration_probe_failed",
			logging.String("input", opts.Input),
			logging.String(logging.FieldImpact, "re-encode progress reported only on completion"),
		)
	}

	last := 0.0
	err = c.run(ctx, OpReencode, c.bins.FFmpeg, reencodeArgs(opts), func(line string) {
		if ctx.Err() != nil || onProgress == nil || total <= 0 {
			return
		}
		elapsed, ok := parseProgressTime(line)
		if !ok {
			return
		}
		pct := percentOf(elapsed, total)
		if pct < last {
			pct = last
		}
		last = pct
		onProgress(pct)
	})
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func reencodeArgs(opts ReencodeOptions) []string {
	quality := strconv.Itoa(opts.Quality)
	args := []string{"-hide_banner", "-nostdin"}
	switch opts.Backend {
	case job.BackendCUDA:
		args = append(args,
			"-hwaccel", "cuda", "-hwaccel_output_format", "cuda", "-c:v", "hevc_cuvid",
			"-i", opts.Input,
			"-c:v", "hevc_nvenc", "-preset", opts.Preset, "-tune", "hq",
			"-rc", "vbr", "-cq", quality, "-b:v", "0",
		)
	case job.BackendQSV:
		args = append(args,
			"-init_hw_device", "qsv=hw", "-filter_hw_device", "hw",
			"-hwaccel", "qsv", "-hwaccel_output_format", "qsv", "-c:v", "hevc_qsv",
			"-i", opts.Input,
			"-c:v", "hevc_qsv", "-preset", opts.Preset, "-global_quality", quality,
		)
	default:
		args = append(args,
			"-i", opts.Input,
			"-c:v", "libx265", "-crf", quality, "-preset", opts.Preset,
		)
	}
	return append(args, "-c:a", "copy", "-y", opts.Output)
}

// TranscodeAudio converts every audio track of input to aac. With
// job.AudioNone nothing runs and input is returned unchanged, which tells
// Remux to pull audio from the original container.
func (c *Client) TranscodeAudio(ctx context.Context, input, output string, mode job.AudioMode, bitrate string) (string, error) {
	if !mode.Converts() {
		return input, nil
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-i", input,
		"-map", "0:a", "-c:a", "aac", "-b:a", bitrate, "-ac", strconv.Itoa(mode.Channels()),
		"-y", output,
	}
	if err := c.run(ctx, OpTranscodeAudio, c.bins.FFmpeg, args, nil); err != nil {
		return "", err
	}
	return output, nil
}
