// Package `integrity` computes content digests of archive files.  Two
// archives are considered the same if their SHA-256 digests are equal.
package integrity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Equal(o Digest) bool {
	return d == o
}

// `ParseDigest()` parses the hex form returned by `String()`.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid digest length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// `File()` returns the SHA-256 of the file at `path`.  The read is aborted
// between chunks if `ctx` is cancelled.
func File(ctx context.Context, path string) (Digest, error) {
	var d Digest
	fp, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer fp.Close()

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: fp}); err != nil {
		return d, fmt.Errorf("failed to hash `%s`: %w", path, err)
	}
	copy(d[:], h.Sum(nil))
	return d, nil
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
