package tools

import (
	"context"
	"errors"
	"os"
	"strings"

	"redovi/internal/services"
)

// ExtractRPU pulls the Dolby Vision RPU stream out of an HEVC elementary
// stream. dovi_tool reports a source without Dolby Vision on its diagnostic
// output; that report, or an empty RPU file after a clean exit, yields
// ErrNoMetadata instead of a generic tool failure.
func (c *Client) ExtractRPU(ctx context.Context, hevc, rpu string) error {
	args := []string{"-m", doviMode, "extract-rpu", "-i", hevc, "-o", rpu}

	noRPU := false
	err := c.run(ctx, OpExtractRPU, c.bins.DoviTool, args, func(line string) {
		if reportsNoRPU(line) {
			noRPU = true
		}
	})
	if err != nil && errors.Is(err, services.ErrAborted) {
		return err
	}
	if noRPU {
		return services.Wrap(services.ErrNoMetadata, OpExtractRPU, "", "source has no Dolby Vision RPU", nil)
	}
	if err != nil {
		return err
	}

	info, statErr := os.Stat(rpu)
	if statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrNoMetadata, OpExtractRPU, "", "dovi_tool produced no RPU data", statErr)
	}
	return nil
}

func reportsNoRPU(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "found no rpu") || strings.Contains(lower, "no rpu found")
}

// InjectRPU writes a copy of hevc with the RPU stream interleaved back in.
func (c *Client) InjectRPU(ctx context.Context, hevc, rpu, output string) error {
	args := []string{"-m", doviMode, "inject-rpu", "-i", hevc, "--rpu-in", rpu, "-o", output}
	return c.run(ctx, OpInjectRPU, c.bins.DoviTool, args, nil)
}
