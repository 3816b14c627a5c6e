package tools

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"redovi/internal/logging"
	"redovi/internal/services"
)

// Operation names reported in ToolError.Stage.
const (
	OpExtractVideo   = "extract video"
	OpExtractRPU     = "extract rpu"
	OpProbe          = "probe duration"
	OpReencode       = "reencode"
	OpInjectRPU      = "inject rpu"
	OpTranscodeAudio = "transcode audio"
	OpRemux          = "remux"
)

// doviMode is the dovi_tool -m conversion mode shared by extract and inject.
const doviMode = "4"

const tailLines = 20

// Binaries names the three external programs.
type Binaries struct {
	FFmpeg   string
	DoviTool string
	MKVMerge string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for tool invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTerminateGrace sets how long a cancelled tool may take to exit after
// SIGTERM. It only affects the default executor.
func WithTerminateGrace(d time.Duration) Option {
	return func(c *Client) {
		if ce, ok := c.exec.(commandExecutor); ok {
			ce.grace = d
			c.exec = ce
		}
	}
}

// Client wraps ffmpeg, dovi_tool and mkvmerge. Each method runs exactly one
// external invocation (Reencode additionally probes the source duration).
type Client struct {
	bins   Binaries
	exec   Executor
	logger *slog.Logger
}

// New constructs a tool client.
func New(bins Binaries, opts ...Option) (*Client, error) {
	bins.FFmpeg = strings.TrimSpace(bins.FFmpeg)
	bins.DoviTool = strings.TrimSpace(bins.DoviTool)
	bins.MKVMerge = strings.TrimSpace(bins.MKVMerge)
	if bins.FFmpeg == "" || bins.DoviTool == "" || bins.MKVMerge == "" {
		return nil, errors.New("ffmpeg, dovi_tool and mkvmerge binaries required")
	}
	client := &Client{
		bins:   bins,
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// run executes one tool invocation, converting failures into ToolError or,
// when ctx was cancelled, an ErrAborted marker.
func (c *Client) run(ctx context.Context, op, binary string, args []string, onLine func(string)) error {
	tool := filepath.Base(binary)
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("running external tool",
		logging.String("tool", tool),
		logging.String("operation", op),
		logging.String("args", strings.Join(args, " ")),
	)

	tail := newTailBuffer(tailLines)
	started := time.Now()
	err := c.exec.Run(ctx, binary, args, func(line string) {
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	})
	if err == nil {
		logger.Debug("external tool finished",
			logging.String("tool", tool),
			logging.String("operation", op),
			logging.Duration("elapsed", time.Since(started)),
		)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrAborted, op, tool, "terminated on request", ctxErr)
	}
	return &services.ToolError{
		Stage:    op,
		Tool:     tool,
		ExitCode: exitCode(err),
		Tail:     tail.snapshot(),
		Err:      err,
	}
}
