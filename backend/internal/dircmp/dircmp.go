// Package `dircmp` deeply compares two directory trees.  Regular files are
// compared byte by byte, symlinks by target.  Modification times and
// permissions are ignored.
package dircmp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
)

const chunkSize = 1024 * 1024

// `Diff` lists slash paths relative to the compared roots.
type Diff struct {
	LeftOnly  []string
	RightOnly []string
	// `Differ` lists entries that exist on both sides with different type
	// or content.
	Differ []string
}

func (d *Diff) Identical() bool {
	return len(d.LeftOnly) == 0 &&
		len(d.RightOnly) == 0 &&
		len(d.Differ) == 0
}

func (d *Diff) String() string {
	if d.Identical() {
		return "identical"
	}
	return fmt.Sprintf(
		"%d only left, %d only right, %d differ",
		len(d.LeftOnly), len(d.RightOnly), len(d.Differ),
	)
}

// `Compare()` walks `left` and `right` recursively.
func Compare(ctx context.Context, left, right string) (*Diff, error) {
	for _, p := range []string{left, right} {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("`%s` is not a directory", p)
		}
	}
	d := &Diff{}
	if err := compareDir(ctx, d, left, right, ""); err != nil {
		return nil, err
	}
	return d, nil
}

func compareDir(ctx context.Context, d *Diff, left, right, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lents, err := readDir(filepath.Join(left, rel))
	if err != nil {
		return err
	}
	rents, err := readDir(filepath.Join(right, rel))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(lents)+len(rents))
	for n := range lents {
		names = append(names, n)
	}
	for n := range rents {
		if _, ok := lents[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, n := range names {
		sub := filepath.Join(rel, n)
		slash := filepath.ToSlash(sub)
		li, lok := lents[n]
		ri, rok := rents[n]
		switch {
		case !rok:
			d.LeftOnly = append(d.LeftOnly, slash)
			continue
		case !lok:
			d.RightOnly = append(d.RightOnly, slash)
			continue
		}

		lt := li.Mode().Type()
		rt := ri.Mode().Type()
		if lt != rt {
			d.Differ = append(d.Differ, slash)
			continue
		}

		switch {
		case li.IsDir():
			if err := compareDir(ctx, d, left, right, sub); err != nil {
				return err
			}
		case li.Mode().IsRegular():
			same, err := sameFile(
				ctx,
				filepath.Join(left, sub), li.Size(),
				filepath.Join(right, sub), ri.Size(),
			)
			if err != nil {
				return err
			}
			if !same {
				d.Differ = append(d.Differ, slash)
			}
		case lt&os.ModeSymlink != 0:
			ll, err := os.Readlink(filepath.Join(left, sub))
			if err != nil {
				return err
			}
			rl, err := os.Readlink(filepath.Join(right, sub))
			if err != nil {
				return err
			}
			if ll != rl {
				d.Differ = append(d.Differ, slash)
			}
		default:
			// Special files cannot be verified.
			d.Differ = append(d.Differ, slash)
		}
	}
	return nil
}

func readDir(dir string) (map[string]os.FileInfo, error) {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	m := make(map[string]os.FileInfo, len(infos))
	for _, i := range infos {
		m[i.Name()] = i
	}
	return m, nil
}

func sameFile(
	ctx context.Context, lpath string, lsize int64, rpath string, rsize int64,
) (bool, error) {
	if lsize != rsize {
		return false, nil
	}

	lf, err := os.Open(lpath)
	if err != nil {
		return false, err
	}
	defer lf.Close()
	rf, err := os.Open(rpath)
	if err != nil {
		return false, err
	}
	defer rf.Close()

	lbuf := make([]byte, chunkSize)
	rbuf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ln, lerr := io.ReadFull(lf, lbuf)
		rn, rerr := io.ReadFull(rf, rbuf)
		if !bytes.Equal(lbuf[:ln], rbuf[:rn]) {
			return false, nil
		}
		lend := lerr == io.EOF || lerr == io.ErrUnexpectedEOF
		rend := rerr == io.EOF || rerr == io.ErrUnexpectedEOF
		switch {
		case lerr != nil && !lend:
			return false, lerr
		case rerr != nil && !rend:
			return false, rerr
		case lend && rend:
			return true, nil
		case lend != rend:
			return false, nil
		}
	}
}
