// Package `driver_rsync` transfers archives by running `rsync`.  Partial
// data is kept in `--partial-dir`, so that an interrupted transfer resumes
// on the next run and `dst` only appears when complete.
package driver_rsync

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bu-isciii/tierarch/backend/internal/tiersync/drivers"
	"github.com/bu-isciii/tierarch/backend/pkg/execx"
)

const Name = "rsync"

var Tool = execx.ToolSpec{
	Program:   "rsync",
	CheckArgs: []string{"--version"},
	CheckText: "rsync",
}

var DefaultOptions = []string{
	"--times",
	"--perms",
	"--partial-dir=.rsync-partial",
}

type Config struct {
	// `Options` replace `DefaultOptions` if non-empty.
	Options []string
	// `BandwidthLimit` in bytes per second; 0 means unlimited.
	BandwidthLimit uint64
}

type Driver struct {
	lg   drivers.Logger
	tool *execx.Tool
	opts []string
}

func New(lg drivers.Logger, cfg Config) (*Driver, error) {
	tool, err := execx.LookTool(Tool)
	if err != nil {
		return nil, err
	}
	return &Driver{
		lg:   lg,
		tool: tool,
		opts: Args(cfg),
	}, nil
}

// `Args()` returns the rsync options for `cfg`, without paths.
func Args(cfg Config) []string {
	opts := DefaultOptions
	if len(cfg.Options) > 0 {
		opts = cfg.Options
	}
	args := make([]string, 0, len(opts)+1)
	args = append(args, opts...)
	if cfg.BandwidthLimit > 0 {
		// rsync interprets `--bwlimit` in KiB/s.
		kib := cfg.BandwidthLimit / 1024
		if kib == 0 {
			kib = 1
		}
		args = append(args, fmt.Sprintf("--bwlimit=%d", kib))
	}
	return args
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Sync(ctx context.Context, src, dst string) error {
	args := append([]string{}, d.opts...)
	args = append(args, "--", src, dst)

	var stderr bytes.Buffer
	cmd := d.tool.CommandContext(ctx, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		d.lg.Warnw(
			"rsync failed.",
			"src", src,
			"dst", dst,
			"exitCode", execx.ExitCode(err),
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return fmt.Errorf(
			"%w: rsync `%s` to `%s`: %v: %s",
			drivers.ErrTransport, src, dst, err,
			strings.TrimSpace(stderr.String()),
		)
	}

	d.lg.Infow(
		"Copied archive.",
		"driver", Name,
		"src", src,
		"dst", dst,
	)
	return nil
}
