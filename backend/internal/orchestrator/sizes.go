package orchestrator

import (
	"context"
	"os"

	"github.com/bu-isciii/tierarch/backend/internal/services"
	"github.com/bu-isciii/tierarch/backend/internal/tarz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const DefaultSizeConcurrency = 4

// `EstimateSize()` sums the source sizes of `recs`: the source directory if
// it exists, otherwise the source archive.  Directories are walked
// concurrently, at most `nConcurrent` at a time.  Missing sources count as
// zero.
func (o *Orchestrator) EstimateSize(
	ctx context.Context, recs []services.Record, nConcurrent int,
) (uint64, error) {
	if nConcurrent < 1 {
		nConcurrent = DefaultSizeConcurrency
	}
	sem := semaphore.NewWeighted(int64(nConcurrent))
	sizes := make([]uint64, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range recs {
		i, l := i, o.Layout(rec)
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			switch {
			case isDir(l.SourceDir):
				sz, err := tarz.DirSize(l.SourceDir)
				if err != nil {
					return err
				}
				sizes[i] = sz
			case isFile(l.SourceArchive):
				info, err := os.Stat(l.SourceArchive)
				if err != nil {
					return err
				}
				sizes[i] = uint64(info.Size())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	// Acquire stops early if the caller cancels.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var total uint64
	for _, sz := range sizes {
		total += sz
	}
	return total, nil
}
