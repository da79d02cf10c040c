// Package `tiersync` opens the transfer driver that is selected in the tier
// configuration.  See package `tiersync/drivers` for the interface.
package tiersync

import (
	"fmt"

	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync/driver_local"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync/driver_rsync"
	"github.com/bu-isciii/tierarch/backend/internal/tiersync/drivers"
)

// `Open()` returns the driver for `cfg.Sync`.  `bwlimit` overrides the
// configured bandwidth limit if non-zero.
func Open(
	lg drivers.Logger, cfg *tiers.Config, bwlimit uint64,
) (drivers.Synchronizer, error) {
	if bwlimit == 0 {
		var err error
		bwlimit, err = cfg.BandwidthLimit()
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Sync.Driver {
	case "", driver_local.Name:
		return driver_local.New(lg, driver_local.Config{
			BandwidthLimit: bwlimit,
		}), nil
	case driver_rsync.Name:
		d, err := driver_rsync.New(lg, driver_rsync.Config{
			Options:        cfg.Sync.RsyncOptions,
			BandwidthLimit: bwlimit,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf(
			"%w: unknown sync driver `%s`",
			tiers.ErrConfig, cfg.Sync.Driver,
		)
	}
}
