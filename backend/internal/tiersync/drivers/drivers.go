// Package `tiersync/drivers` contains the interface that transfer drivers
// implement to copy archive files between the live and the archive tier.
//
// The default driver `local` copies through the filesystem, which covers
// tiers that are mounted on the same host.  The `rsync` driver runs an
// external `rsync`, which supports remote destinations and resumes partial
// transfers.
//
// Verification is not the driver's job.  The caller compares digests of
// both copies after `Sync()`.
package drivers

import (
	"context"
	"errors"
)

var ErrTransport = errors.New("transport failure")

type Logger interface {
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
}

// `Synchronizer` is implemented by transfer drivers.
type Synchronizer interface {
	// `Name()` identifies the driver in logs.
	Name() string

	// `Sync()` copies the file `src` to `dst`, overwriting an existing
	// `dst`.  The parent directory of `dst` exists.  A driver must not
	// leave a partial file under the name `dst` if it returns an error.
	// Errors should wrap `ErrTransport`.
	Sync(ctx context.Context, src, dst string) error
}
