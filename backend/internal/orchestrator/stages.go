package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bu-isciii/tierarch/backend/internal/decide"
	"github.com/bu-isciii/tierarch/backend/internal/integrity"
	"github.com/bu-isciii/tierarch/backend/internal/safedelete"
	"github.com/bu-isciii/tierarch/backend/internal/tarz"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
)

// `compress()` packs the source directory into the source archive.
func (o *Orchestrator) compress(
	ctx context.Context, rep *Report, id string, l tiers.Layout,
) (Outcome, error) {
	st := DeriveState(l)
	switch {
	case st.DestDir:
		return SkippedAlreadyDone, nil
	case st.SourceArchive && !st.SourceDir:
		return SkippedAlreadyDone, nil
	case !st.SourceDir:
		return Failed, fmt.Errorf(
			"%w: source directory `%s`", ErrNotFound, l.SourceDir,
		)
	case st.SourceArchive:
		d, err := o.ask(ctx, decide.Conflict{
			Kind:    decide.KindExistingArtifact,
			Service: id,
			Stage:   StageCompress.String(),
			Path:    l.SourceArchive,
		})
		if err != nil {
			return SkippedByUserChoice, err
		}
		if d == decide.Skip {
			return SkippedByUserChoice, nil
		}
		// The directory still exists, so the old archive is redundant.
		err = safedelete.DeleteRedundantArtifact(l.SourceArchive, l.SourceDir)
		if err != nil {
			return Failed, err
		}
	}

	dirSize, err := tarz.DirSize(l.SourceDir)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	stats, err := tarz.Compress(ctx, l.SourceDir, l.SourceArchive,
		tarz.CompressOptions{
			Format:    o.format,
			Bandwidth: o.bandwidth,
		},
	)
	if err != nil {
		return Failed, fmt.Errorf(
			"%w: compress `%s`: %v", ErrTransport, l.SourceDir, err,
		)
	}
	info, err := os.Stat(l.SourceArchive)
	if err != nil {
		return Failed, err
	}

	saved := int64(dirSize) - info.Size()
	rep.BytesSaved += saved
	o.lg.Infow(
		"Compressed service.",
		"service", id,
		"archive", l.SourceArchive,
		"files", stats.Files,
		"dirSize", dirSize,
		"archiveSize", info.Size(),
		"bytesSaved", saved,
	)
	return Succeeded, nil
}

// `transfer()` copies the source archive to the destination tier and
// verifies the copy by digest.  A mismatching copy is removed.
func (o *Orchestrator) transfer(
	ctx context.Context, id string, l tiers.Layout,
) (Outcome, error) {
	st := DeriveState(l)
	switch {
	case st.DestDir:
		return SkippedAlreadyDone, nil
	case !st.SourceArchive:
		return Failed, fmt.Errorf(
			"%w: source archive `%s`", ErrNotFound, l.SourceArchive,
		)
	}

	srcDigest, err := integrity.File(ctx, l.SourceArchive)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if st.DestArchive {
		dstDigest, err := integrity.File(ctx, l.DestArchive)
		if err != nil {
			return Failed, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if dstDigest.Equal(srcDigest) {
			return SkippedAlreadyDone, nil
		}
		o.lg.Warnw(
			"Destination archive differs from source; transferring again.",
			"service", id,
			"archive", l.DestArchive,
		)
	}

	if err := os.MkdirAll(filepath.Dir(l.DestArchive), 0755); err != nil {
		return Failed, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := o.sync.Sync(ctx, l.SourceArchive, l.DestArchive); err != nil {
		return Failed, fmt.Errorf(
			"%w: `%s` to `%s`: %v",
			ErrTransport, l.SourceArchive, l.DestArchive, err,
		)
	}

	dstDigest, err := integrity.File(ctx, l.DestArchive)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if !dstDigest.Equal(srcDigest) {
		if err := os.Remove(l.DestArchive); err != nil {
			o.lg.Errorw(
				"Failed to remove corrupted archive.",
				"service", id,
				"archive", l.DestArchive,
				"err", err,
			)
		}
		return Failed, fmt.Errorf(
			"%w: `%s` has sha256 %s, expected %s",
			ErrIntegrityMismatch, l.DestArchive, dstDigest, srcDigest,
		)
	}

	o.lg.Infow(
		"Transferred service.",
		"service", id,
		"archive", l.DestArchive,
		"driver", o.sync.Name(),
		"sha256", srcDigest.String(),
	)
	return Succeeded, nil
}

// `expand()` unpacks the destination archive into the destination
// directory.
func (o *Orchestrator) expand(
	ctx context.Context, id string, l tiers.Layout,
) (Outcome, error) {
	st := DeriveState(l)
	switch {
	case st.DestDir && !st.DestArchive:
		return SkippedAlreadyDone, nil
	case !st.DestArchive:
		return Failed, fmt.Errorf(
			"%w: destination archive `%s`", ErrNotFound, l.DestArchive,
		)
	}

	replace := false
	if st.DestDir {
		d, err := o.ask(ctx, decide.Conflict{
			Kind:    decide.KindExistingDestination,
			Service: id,
			Stage:   StageExpand.String(),
			Path:    l.DestDir,
		})
		if err != nil {
			return SkippedByUserChoice, err
		}
		if d == decide.Skip {
			return SkippedByUserChoice, nil
		}
		replace = true
	}

	if st.SourceArchive {
		src, err := integrity.File(ctx, l.SourceArchive)
		if err != nil {
			return Failed, err
		}
		dst, err := integrity.File(ctx, l.DestArchive)
		if err != nil {
			return Failed, err
		}
		if !src.Equal(dst) {
			return Failed, fmt.Errorf(
				"%w: `%s` differs from `%s`",
				ErrIntegrityMismatch, l.DestArchive, l.SourceArchive,
			)
		}
	}

	stats, err := tarz.Expand(ctx, l.DestArchive, l.DestDir,
		tarz.ExpandOptions{
			Format:  o.format,
			Replace: replace,
		},
	)
	if err != nil {
		return Failed, err
	}

	o.lg.Infow(
		"Expanded service.",
		"service", id,
		"dir", l.DestDir,
		"files", stats.Files,
		"replaced", replace,
	)
	return Succeeded, nil
}

// `delete()` removes the source directory and both archives once the
// expanded destination directory exists.  The source directory must be
// deeply identical to it.
func (o *Orchestrator) delete(
	ctx context.Context, id string, l tiers.Layout,
) (Outcome, error) {
	st := DeriveState(l)
	var leftovers []string
	if st.DestDir {
		var err error
		leftovers, err = safedelete.RemoveLeftovers(l.SourceDir, l.DestDir)
		for _, p := range leftovers {
			o.lg.Warnw(
				"Removed leftover of an earlier deletion.",
				"service", id,
				"path", p,
			)
		}
		if err != nil {
			return Failed, err
		}
	}
	if !st.SourceDir && !st.SourceArchive && !st.DestArchive {
		if len(leftovers) > 0 {
			return Succeeded, nil
		}
		return SkippedAlreadyDone, nil
	}

	if !st.DestDir {
		d, err := o.ask(ctx, decide.Conflict{
			Kind:    decide.KindMissingWitness,
			Service: id,
			Stage:   StageDelete.String(),
			Path:    l.DestDir,
		})
		if err != nil {
			return SkippedByUserChoice, err
		}
		if d == decide.Skip {
			return SkippedByUserChoice, nil
		}
		// Without a witness, only an archive whose origin directory is
		// still present may go.  The source itself stays.
		if st.SourceArchive && st.SourceDir {
			err := safedelete.DeleteRedundantArtifact(
				l.SourceArchive, l.SourceDir,
			)
			if err != nil {
				return Failed, err
			}
			o.lg.Warnw(
				"Deleted redundant archive without destination.",
				"service", id,
				"archive", l.SourceArchive,
			)
		}
		return Failed, fmt.Errorf(
			"%w `%s`; source kept", ErrMissingWitness, l.DestDir,
		)
	}

	if st.SourceDir {
		err := safedelete.DeleteIfIdentical(ctx, l.SourceDir, l.DestDir)
		if err != nil {
			return Failed, err
		}
	}
	for _, a := range []struct {
		present bool
		path    string
	}{
		{st.SourceArchive, l.SourceArchive},
		{st.DestArchive, l.DestArchive},
	} {
		if !a.present {
			continue
		}
		if err := safedelete.DeleteArtifact(a.path, l.DestDir); err != nil {
			return Failed, err
		}
	}

	o.lg.Infow(
		"Deleted source.",
		"service", id,
		"dir", l.SourceDir,
		"witness", l.DestDir,
	)
	return Succeeded, nil
}
