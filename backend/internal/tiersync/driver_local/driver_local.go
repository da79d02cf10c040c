package driver_local

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bu-isciii/tierarch/backend/internal/tiersync/drivers"
	"github.com/bu-isciii/tierarch/backend/pkg/rate"
	"github.com/bu-isciii/tierarch/backend/pkg/ratelimit"
	"github.com/bu-isciii/tierarch/backend/pkg/uuid"
)

const Name = "local"

type Config struct {
	// `BandwidthLimit` in bytes per second; 0 means unlimited.
	BandwidthLimit uint64
}

type Driver struct {
	lg     drivers.Logger
	bucket *ratelimit.Bucket
}

func New(lg drivers.Logger, cfg Config) *Driver {
	return &Driver{
		lg:     lg,
		bucket: ratelimit.NewBandwidth(cfg.BandwidthLimit),
	}
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Sync(ctx context.Context, src, dst string) error {
	if err := d.sync(ctx, src, dst); err != nil {
		return fmt.Errorf("%w: %v", drivers.ErrTransport, err)
	}
	return nil
}

func (d *Driver) sync(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("`%s` is not a regular file", src)
	}

	tmp, err := uuid.InProgressName(dst)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(
		tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm(),
	)
	if err != nil {
		return err
	}
	ok := false
	defer func() {
		if !ok {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	progress := rate.NewProgress(d.lg, rate.Config{
		Name:  dst,
		Total: uint64(info.Size()),
	})
	var r io.Reader = &ctxReader{ctx: ctx, r: in}
	r = ratelimit.Reader(r, d.bucket)
	r = progress.Reader(r)

	n, err := io.Copy(out, r)
	if err != nil {
		return err
	}
	if n != info.Size() {
		return fmt.Errorf(
			"copied %d bytes, but `%s` has %d bytes",
			n, src, info.Size(),
		)
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}
	ok = true

	d.lg.Infow(
		"Copied archive.",
		"src", src,
		"dst", dst,
		"size", n,
	)
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
