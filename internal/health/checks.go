// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// VideoFileChecker reports whether the current video file exists. A wall
// node without a video is degraded, not unhealthy: it still accepts
// transfers and commands.
type VideoFileChecker struct {
	Path string
}

func (c *VideoFileChecker) Name() string { return "video_file" }

func (c *VideoFileChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.Path)
	if err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no current video; waiting for a transfer",
			Error:   err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d bytes", info.Size()),
	}
}

// DecoderBinChecker reports whether the decoder binary is resolvable.
type DecoderBinChecker struct {
	Bin string
}

func (c *DecoderBinChecker) Name() string { return "decoder_bin" }

func (c *DecoderBinChecker) Check(_ context.Context) CheckResult {
	path, err := exec.LookPath(c.Bin)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "decoder binary not found",
			Error:   err.Error(),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}
