package tarz

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bu-isciii/tierarch/backend/pkg/uuid"
)

type ExpandOptions struct {
	Format Format
	// `Replace` allows replacing an existing `destDir`.  The old directory
	// is only removed after the new one has been completely extracted.
	Replace bool
}

type dirMode struct {
	path string
	mode os.FileMode
}

// `Expand()` extracts `archive` into `destDir`.  The archive members must
// be rooted at `filepath.Base(destDir)`.
func Expand(
	ctx context.Context, archive, destDir string, opts ExpandOptions,
) (Stats, error) {
	var st Stats
	destDir = filepath.Clean(destDir)
	base := filepath.Base(destDir)

	if exists(destDir) && !opts.Replace {
		return st, fmt.Errorf("%w: `%s`", ErrDestinationExists, destDir)
	}

	fp, err := os.Open(archive)
	if err != nil {
		return st, err
	}
	defer fp.Close()
	zr, err := decompressReader(&ctxReader{ctx: ctx, r: fp}, opts.Format)
	if err != nil {
		return st, err
	}
	defer zr.Close()

	tmp, err := uuid.InProgressName(destDir)
	if err != nil {
		return st, err
	}
	if err := os.Mkdir(tmp, 0755); err != nil {
		return st, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = os.RemoveAll(tmp)
		}
	}()

	st, err = extractTree(ctx, tar.NewReader(zr), base, tmp)
	if err != nil {
		return st, fmt.Errorf("failed to expand `%s`: %w", archive, err)
	}

	if err := install(tmp, destDir); err != nil {
		return st, err
	}
	ok = true
	return st, nil
}

func extractTree(
	ctx context.Context, tr *tar.Reader, base, root string,
) (Stats, error) {
	var st Stats
	var dirs []dirMode
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}

		rel, err := memberPath(base, hdr.Name)
		if err != nil {
			return st, err
		}
		target := filepath.Join(root, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := checkDirChain(root, rel); err != nil {
				return st, err
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return st, err
			}
			dirs = append(dirs, dirMode{
				path: target,
				mode: hdr.FileInfo().Mode().Perm(),
			})
			st.Dirs++

		case tar.TypeReg:
			if rel == "" {
				return st, fmt.Errorf(
					"%w: root `%s` is not a directory",
					ErrUnsafeMember, hdr.Name,
				)
			}
			if err := checkDirChain(root, path.Dir(rel)); err != nil {
				return st, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return st, err
			}
			n, err := writeFile(ctx, target, tr, hdr)
			if err != nil {
				return st, err
			}
			st.Files++
			st.Bytes += uint64(n)

		case tar.TypeSymlink:
			// Link targets are kept verbatim.  They may point to shared
			// data outside the service.  Members are never written
			// through them, see `checkDirChain()`.
			if rel == "" {
				return st, fmt.Errorf(
					"%w: root `%s` is not a directory",
					ErrUnsafeMember, hdr.Name,
				)
			}
			if err := checkDirChain(root, path.Dir(rel)); err != nil {
				return st, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return st, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return st, err
			}
			st.Files++

		default:
			return st, fmt.Errorf(
				"%w: `%s` has unsupported type %q",
				ErrUnsafeMember, hdr.Name, hdr.Typeflag,
			)
		}
	}

	// Apply directory permissions last, so that read-only directories do
	// not block their own content.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].mode); err != nil {
			return st, err
		}
	}
	return st, nil
}

// `memberPath()` returns the slash path of `name` relative to the archive
// root `base`, or `ErrUnsafeMember` if `name` could escape it.
func memberPath(base, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: `%s`", ErrUnsafeMember, name)
	}
	for _, c := range strings.Split(name, "/") {
		if c == ".." {
			return "", fmt.Errorf("%w: `%s`", ErrUnsafeMember, name)
		}
	}
	clean := path.Clean(name)
	switch {
	case clean == base:
		return "", nil
	case strings.HasPrefix(clean, base+"/"):
		return clean[len(base)+1:], nil
	default:
		return "", fmt.Errorf(
			"%w: `%s` outside of `%s/`", ErrUnsafeMember, name, base,
		)
	}
}

// `checkDirChain()` returns `ErrUnsafeMember` if a component of the slash
// path `dir` below `root` exists but is not a real directory, which would
// make the next write follow a symlink from an earlier member.
func checkDirChain(root, dir string) error {
	p := root
	for _, c := range strings.Split(dir, "/") {
		if c == "" || c == "." {
			continue
		}
		p = filepath.Join(p, c)
		info, err := os.Lstat(p)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf(
				"%w: `%s` is not a directory below archive root",
				ErrUnsafeMember, dir,
			)
		}
	}
	return nil
}

func writeFile(
	ctx context.Context, target string, r io.Reader, hdr *tar.Header,
) (int64, error) {
	fp, err := os.OpenFile(
		target, os.O_WRONLY|os.O_CREATE|os.O_EXCL,
		hdr.FileInfo().Mode().Perm(),
	)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(fp, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = fp.Close()
		return n, err
	}
	if err := fp.Close(); err != nil {
		return n, err
	}
	if !hdr.ModTime.IsZero() {
		if err := os.Chtimes(target, hdr.ModTime, hdr.ModTime); err != nil {
			return n, err
		}
	}
	return n, nil
}

// `install()` renames `tmp` to `dst`.  An existing `dst` is first moved
// aside and removed only after `tmp` is in place.
func install(tmp, dst string) error {
	if !exists(dst) {
		return os.Rename(tmp, dst)
	}

	old, err := uuid.InProgressName(dst + ".replaced")
	if err != nil {
		return err
	}
	if err := os.Rename(dst, old); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		if err2 := os.Rename(old, dst); err2 != nil {
			return fmt.Errorf(
				"%v; failed to restore `%s` from `%s`: %v",
				err, dst, old, err2,
			)
		}
		return err
	}
	return os.RemoveAll(old)
}
