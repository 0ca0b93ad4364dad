package internal

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// MediaProbe reads media properties with ffprobe
type MediaProbe struct {
	cmdRunner CommandRunner
}

// NewMediaProbe returns a probe, or nil when ffprobe is not installed
func NewMediaProbe(cmdRunner CommandRunner) *MediaProbe {
	if _, ok := cmdRunner.(*DefaultCommandRunner); ok {
		if _, err := exec.LookPath("ffprobe"); err != nil {
			return nil
		}
	}
	return &MediaProbe{cmdRunner: cmdRunner}
}

// Duration returns the media duration
func (p *MediaProbe) Duration(ctx context.Context, mediaPath string) (time.Duration, error) {
	output, err := p.cmdRunner.Run(ctx, "ffprobe",
		"-i", mediaPath,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}

	return time.Duration(secs * float64(time.Second)), nil
}
