// Package `safedelete` removes data only when an independent copy, the
// witness, is known to exist.  It never deletes without a witness.
package safedelete

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bu-isciii/tierarch/backend/internal/dircmp"
	"github.com/bu-isciii/tierarch/backend/pkg/uuid"
)

var ErrUnsafeDeletion = errors.New("unsafe deletion")
var ErrMissingWitness = fmt.Errorf("%w: missing witness", ErrUnsafeDeletion)

// `DifferError` reports the differences that prevented a deletion.
type DifferError struct {
	Path    string
	Witness string
	Diff    *dircmp.Diff
}

func (e *DifferError) Error() string {
	return fmt.Sprintf(
		"%s: `%s` differs from `%s`: %s",
		ErrUnsafeDeletion, e.Path, e.Witness, e.Diff,
	)
}

func (e *DifferError) Unwrap() error {
	return ErrUnsafeDeletion
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// `DeleteIfIdentical()` removes the directory `path` if it is deeply
// identical to `witness`.  The directory is first renamed, so that an
// interrupted removal never leaves a partial tree under the original name.
func DeleteIfIdentical(ctx context.Context, path, witness string) error {
	if !isDir(witness) {
		return fmt.Errorf("%w `%s`", ErrMissingWitness, witness)
	}
	d, err := dircmp.Compare(ctx, path, witness)
	if err != nil {
		return err
	}
	if !d.Identical() {
		return &DifferError{Path: path, Witness: witness, Diff: d}
	}

	trash, err := uuid.InProgressName(path + trashSuffix)
	if err != nil {
		return err
	}
	if err := os.Rename(path, trash); err != nil {
		return err
	}
	if err := os.RemoveAll(trash); err != nil {
		return fmt.Errorf(
			"verified copy of `%s` left at `%s`: %w", path, trash, err,
		)
	}
	return nil
}

const trashSuffix = ".deleting"

// `RemoveLeftovers()` removes trees that `DeleteIfIdentical()` renamed but
// failed to remove.  They have been compared to `witness` before the
// rename, so the witness must still exist.  It returns the removed paths.
func RemoveLeftovers(path, witness string) ([]string, error) {
	trash, err := filepath.Glob(path + trashSuffix + ".inprogress-*")
	if err != nil {
		return nil, err
	}
	if len(trash) == 0 {
		return nil, nil
	}
	if !isDir(witness) {
		return nil, fmt.Errorf("%w `%s`", ErrMissingWitness, witness)
	}

	var removed []string
	for _, t := range trash {
		if err := os.RemoveAll(t); err != nil {
			return removed, err
		}
		removed = append(removed, t)
	}
	return removed, nil
}

// `DeleteArtifact()` removes the archive file `path`, whose content has
// been expanded to the directory `witness`.
func DeleteArtifact(path, witness string) error {
	if !isDir(witness) {
		return fmt.Errorf("%w `%s`", ErrMissingWitness, witness)
	}
	return removeFile(path)
}

// `DeleteRedundantArtifact()` removes the archive file `path` that was
// created from the directory `origin`, which still exists.
func DeleteRedundantArtifact(path, origin string) error {
	if !isDir(origin) {
		return fmt.Errorf("%w `%s`", ErrMissingWitness, origin)
	}
	return removeFile(path)
}

func removeFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("`%s` is a directory, not an archive", path)
	}
	return os.Remove(path)
}
