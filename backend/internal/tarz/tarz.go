// Package `tarz` packs a service directory into a single compressed tar
// archive and expands such archives back into a directory.
//
// Archive members are rooted at the basename of the packed directory, so
// that `SRVCNM584/` packed into `SRVCNM584.tar.zst` contains members
// `SRVCNM584/`, `SRVCNM584/RAW/...`, and so on.  `Expand()` refuses
// members outside that root.
//
// Both directions write to a temporary `<name>.inprogress-<uuid>` sibling
// and rename it into place on success, so that a final name never refers
// to incomplete data.
package tarz

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DataDog/zstd"
)

var ErrUnsupportedExt = errors.New("unsupported archive extension")
var ErrUnsafeMember = errors.New("unsafe archive member")
var ErrDestinationExists = errors.New("destination already exists")

type Format int

const (
	FormatUnspecified Format = iota
	FormatZstd
	FormatGzip
)

func (f Format) String() string {
	switch f {
	case FormatZstd:
		return "zstd"
	case FormatGzip:
		return "gzip"
	default:
		return "unspecified"
	}
}

// `FormatForExt()` maps an archive extension like `tar.zst` to a format.
func FormatForExt(ext string) (Format, error) {
	switch strings.TrimPrefix(ext, ".") {
	case "tar.zst", "tzst":
		return FormatZstd, nil
	case "tar.gz", "tgz":
		return FormatGzip, nil
	default:
		return FormatUnspecified, fmt.Errorf(
			"%w `%s`", ErrUnsupportedExt, ext,
		)
	}
}

type Stats struct {
	Files int64
	Dirs  int64
	// `Bytes` counts uncompressed regular file content.
	Bytes uint64
}

// `DirSize()` returns the total size of the regular files below `dir`.
func DirSize(dir string) (uint64, error) {
	var sz uint64
	err := filepath.Walk(dir, func(
		path string, info os.FileInfo, err error,
	) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			sz += uint64(info.Size())
		}
		return nil
	})
	return sz, err
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

func compressWriter(w io.Writer, f Format) (io.WriteCloser, error) {
	switch f {
	case FormatZstd:
		return zstd.NewWriter(w), nil
	case FormatGzip:
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedExt, f)
	}
}

func decompressReader(r io.Reader, f Format) (io.ReadCloser, error) {
	switch f {
	case FormatZstd:
		return zstd.NewReader(r), nil
	case FormatGzip:
		return gzip.NewReader(r)
	default:
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedExt, f)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
