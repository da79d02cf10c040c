package tarz

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bu-isciii/tierarch/backend/pkg/ratelimit"
	"github.com/bu-isciii/tierarch/backend/pkg/uuid"
)

type CompressOptions struct {
	Format Format
	// `Bandwidth` optionally limits reading from `srcDir`, so that packing
	// does not saturate shared live storage.
	Bandwidth *ratelimit.Bucket
}

// `Compress()` packs `srcDir` into the archive file `dst`, which must not
// exist.
func Compress(
	ctx context.Context, srcDir, dst string, opts CompressOptions,
) (Stats, error) {
	var st Stats

	info, err := os.Stat(srcDir)
	if err != nil {
		return st, err
	}
	if !info.IsDir() {
		return st, fmt.Errorf("`%s` is not a directory", srcDir)
	}
	if exists(dst) {
		return st, fmt.Errorf("%w: `%s`", ErrDestinationExists, dst)
	}

	tmp, err := uuid.InProgressName(dst)
	if err != nil {
		return st, err
	}
	fp, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return st, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = fp.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw, err := compressWriter(fp, opts.Format)
	if err != nil {
		return st, err
	}
	tw := tar.NewWriter(zw)

	st, err = writeTree(ctx, tw, srcDir, opts.Bandwidth)
	if err != nil {
		return st, err
	}
	if err := tw.Close(); err != nil {
		return st, err
	}
	if err := zw.Close(); err != nil {
		return st, err
	}
	if err := fp.Sync(); err != nil {
		return st, err
	}
	if err := fp.Close(); err != nil {
		return st, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return st, err
	}
	ok = true
	return st, nil
}

// `writeTree()` walks `srcDir` in lexical order, which makes archives of
// identical trees identical.
func writeTree(
	ctx context.Context, tw *tar.Writer, srcDir string, bw *ratelimit.Bucket,
) (Stats, error) {
	var st Stats
	srcDir = filepath.Clean(srcDir)
	parent := filepath.Dir(srcDir)

	err := filepath.Walk(srcDir, func(
		path string, info os.FileInfo, err error,
	) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		var link string
		switch {
		case info.IsDir():
			name += "/"
		case info.Mode().IsRegular():
		case info.Mode()&os.ModeSymlink != 0:
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf(
				"unsupported file type %s at `%s`",
				info.Mode().Type(), path,
			)
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		// Owner names depend on the host; keep numeric ids only.
		hdr.Uname = ""
		hdr.Gname = ""
		hdr.Format = tar.FormatPAX
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		switch {
		case info.IsDir():
			st.Dirs++
			return nil
		case info.Mode().IsRegular():
			n, err := copyFile(ctx, tw, path, bw)
			if err != nil {
				return err
			}
			st.Files++
			st.Bytes += uint64(n)
			return nil
		default:
			st.Files++
			return nil
		}
	})
	return st, err
}

func copyFile(
	ctx context.Context, w io.Writer, path string, bw *ratelimit.Bucket,
) (int64, error) {
	fp, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer fp.Close()
	return io.Copy(w, ratelimit.Reader(&ctxReader{ctx: ctx, r: fp}, bw))
}
